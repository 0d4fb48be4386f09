package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/application"
)

type cardService interface {
	UpsertCard(ctx context.Context, params application.UpsertCardParams) (application.Card, error)
	GetMyCards(ctx context.Context, params application.GetMyCardsParams) ([]application.Card, error)
	GetCards(ctx context.Context, params application.GetCardsParams) ([]application.Card, error)
}

// CardHandler serves the DBT diary card endpoints nested under a room.
type CardHandler struct {
	service   cardService
	responder responder
	logger    *zap.Logger
}

func NewCardHandler(service cardService, logger *zap.Logger) *CardHandler {
	base := defaultLogger(logger)
	return &CardHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CardHandler) log(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return handlerLogger(ctx, h.logger, "CardHandler", operation, fields...)
}

func (h *CardHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	roomID := chi.URLParam(r, "roomID")

	var req upsertCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Upsert", zap.String("principal_id", principal.UserID), zap.String("room_id", roomID)).
			Warn("failed to decode card request", zap.Error(err))
		h.responder.writeBadBody(r.Context(), w)
		return
	}

	card, err := h.service.UpsertCard(r.Context(), application.UpsertCardParams{
		Principal: principal,
		RoomID:    roomID,
		Date:      req.Date,
		Header:    req.Header,
		DayData:   req.DayData,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCardDTO(card))
}

func (h *CardHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	cards, err := h.service.GetMyCards(r.Context(), application.GetMyCardsParams{
		Principal: principal,
		RoomID:    chi.URLParam(r, "roomID"),
		Date:      r.URL.Query().Get("date"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCardList(cards))
}

func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	cards, err := h.service.GetCards(r.Context(), application.GetCardsParams{
		Principal: principal,
		RoomID:    chi.URLParam(r, "roomID"),
		Date:      query.Get("date"),
		ClientID:  query.Get("client_id"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCardList(cards))
}

// upsertCardRequest decodes straight into the partial inputs so that a
// missing or null key stays nil and keeps the stored value.
type upsertCardRequest struct {
	Date    string                       `json:"date"`
	Header  *application.CardHeaderInput `json:"header"`
	DayData *application.DayDataInput    `json:"day_data"`
}

type cardListResponse struct {
	Cards []cardDTO `json:"cards"`
}

type cardDTO struct {
	ID          string                 `json:"id"`
	RoomID      string                 `json:"room_id"`
	ClientID    string                 `json:"client_id"`
	Date        string                 `json:"date"`
	Header      application.CardHeader `json:"header"`
	DayData     application.DayData    `json:"day_data"`
	SubmittedAt string                 `json:"submitted_at"`
	UpdatedAt   string                 `json:"updated_at"`
	ClientName  string                 `json:"client_name,omitempty"`
	ClientEmail string                 `json:"client_email,omitempty"`
}

func toCardDTO(card application.Card) cardDTO {
	return cardDTO{
		ID:          card.ID,
		RoomID:      card.RoomID,
		ClientID:    card.ClientID,
		Date:        application.FormatDate(card.Date),
		Header:      card.Header,
		DayData:     card.DayData,
		SubmittedAt: formatTime(card.SubmittedAt),
		UpdatedAt:   formatTime(card.UpdatedAt),
		ClientName:  card.ClientName,
		ClientEmail: card.ClientEmail,
	}
}

func toCardList(cards []application.Card) cardListResponse {
	resp := cardListResponse{Cards: make([]cardDTO, 0, len(cards))}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, toCardDTO(card))
	}
	return resp
}
