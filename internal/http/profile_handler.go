package http

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/application"
)

type profileService interface {
	GetProfile(ctx context.Context, principal application.Principal) (application.Profile, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.Profile, error)
}

type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *zap.Logger
}

func NewProfileHandler(service profileService, logger *zap.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	profile, err := h.service.GetProfile(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlerLogger(r.Context(), h.logger, "ProfileHandler", "Update", zap.String("principal_id", principal.UserID)).
			Warn("failed to decode profile update", zap.Error(err))
		h.responder.writeBadBody(r.Context(), w)
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), application.UpdateProfileParams{Principal: principal, Name: req.Name})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProfileDTO(profile))
}

type updateProfileRequest struct {
	Name *string `json:"name"`
}

type profileDTO struct {
	userDTO
	Stats *profileStatsDTO `json:"stats,omitempty"`
	Rooms []profileRoomDTO `json:"rooms,omitempty"`
}

// profileStatsDTO carries only the totals that apply to the caller's role.
type profileStatsDTO struct {
	RoomCount        *int `json:"room_count,omitempty"`
	TotalClientCards *int `json:"total_client_cards,omitempty"`
	DBTCardCount     *int `json:"dbt_card_count,omitempty"`
}

type profileRoomDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt *string `json:"created_at,omitempty"`
	JoinedAt  *string `json:"joined_at,omitempty"`
	CardCount int     `json:"card_count"`
}

func toProfileDTO(p application.Profile) profileDTO {
	dto := profileDTO{userDTO: toUserDTO(p.User)}
	if p.Stats != nil {
		stats := *p.Stats
		if p.User.Role == application.RoleCounselor {
			dto.Stats = &profileStatsDTO{RoomCount: &stats.RoomCount, TotalClientCards: &stats.TotalClientCards}
		} else {
			dto.Stats = &profileStatsDTO{DBTCardCount: &stats.DBTCardCount}
		}
		dto.Rooms = make([]profileRoomDTO, 0, len(p.Rooms))
	}
	for _, room := range p.Rooms {
		dto.Rooms = append(dto.Rooms, profileRoomDTO{
			ID:        room.RoomID,
			Name:      room.Name,
			CreatedAt: formatOptionalTime(room.CreatedAt),
			JoinedAt:  formatOptionalTime(room.JoinedAt),
			CardCount: room.CardCount,
		})
	}
	return dto
}
