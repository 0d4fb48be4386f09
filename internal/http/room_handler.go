package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/application"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (application.RoomSummary, error)
	ListRooms(ctx context.Context, principal application.Principal) ([]application.RoomSummary, error)
	GetRoomDetail(ctx context.Context, principal application.Principal, roomID string) (application.RoomDetail, error)
	JoinRoom(ctx context.Context, params application.JoinRoomParams) (application.RoomSummary, error)
	LeaveRoom(ctx context.Context, principal application.Principal, roomID string) error
	DeleteRoom(ctx context.Context, principal application.Principal, roomID string) error
}

type RoomHandler struct {
	service   roomService
	responder responder
	logger    *zap.Logger
}

func NewRoomHandler(service roomService, logger *zap.Logger) *RoomHandler {
	base := defaultLogger(logger)
	return &RoomHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RoomHandler) log(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return handlerLogger(ctx, h.logger, "RoomHandler", operation, fields...)
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", zap.String("principal_id", principal.UserID)).Warn("failed to decode room request", zap.Error(err))
		h.responder.writeBadBody(r.Context(), w)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{Principal: principal, Name: req.Name})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRoomDTO(room))
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	rooms, err := h.service.ListRooms(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := roomListResponse{Rooms: make([]roomDTO, 0, len(rooms))}
	for _, room := range rooms {
		resp.Rooms = append(resp.Rooms, toRoomDTO(room))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	detail, err := h.service.GetRoomDetail(r.Context(), principal, chi.URLParam(r, "roomID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDetailDTO(detail))
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Join", zap.String("principal_id", principal.UserID)).Warn("failed to decode join request", zap.Error(err))
		h.responder.writeBadBody(r.Context(), w)
		return
	}

	room, err := h.service.JoinRoom(r.Context(), application.JoinRoomParams{Principal: principal, InviteCode: req.InviteCode})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.LeaveRoom(r.Context(), principal, chi.URLParam(r, "roomID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteRoom(r.Context(), principal, chi.URLParam(r, "roomID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code"`
}

type roomListResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

type roomDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	InviteCode  string  `json:"invite_code"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	ClientCount int     `json:"client_count"`
	JoinedAt    *string `json:"joined_at,omitempty"`
}

type roomDetailDTO struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	InviteCode   string      `json:"invite_code"`
	CreatedBy    string      `json:"created_by"`
	CreatorName  string      `json:"creator_name"`
	CreatorEmail string      `json:"creator_email"`
	CreatedAt    string      `json:"created_at"`
	ClientCount  int         `json:"client_count"`
	Clients      []memberDTO `json:"clients"`
}

type memberDTO struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	JoinedAt string `json:"joined_at"`
}

func toRoomDTO(room application.RoomSummary) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		InviteCode:  room.InviteCode,
		CreatedBy:   room.CreatedBy,
		CreatedAt:   formatTime(room.CreatedAt),
		ClientCount: room.ClientCount,
		JoinedAt:    formatOptionalTime(room.JoinedAt),
	}
}

func toRoomDetailDTO(detail application.RoomDetail) roomDetailDTO {
	dto := roomDetailDTO{
		ID:           detail.ID,
		Name:         detail.Name,
		InviteCode:   detail.InviteCode,
		CreatedBy:    detail.CreatedBy,
		CreatorName:  detail.CreatorName,
		CreatorEmail: detail.CreatorEmail,
		CreatedAt:    formatTime(detail.CreatedAt),
		ClientCount:  detail.ClientCount,
		Clients:      make([]memberDTO, 0, len(detail.Clients)),
	}
	for _, m := range detail.Clients {
		dto.Clients = append(dto.Clients, memberDTO{
			UserID:   m.UserID,
			Name:     m.Name,
			Email:    m.Email,
			JoinedAt: formatTime(m.JoinedAt),
		})
	}
	return dto
}
