package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CardService maintains DBT diary cards: one per client, room, and day.
type CardService struct {
	users       IdentityStore
	rooms       RoomRepository
	memberships MembershipRepository
	cards       CardRepository
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewCardService constructs a card service with the provided dependencies.
func NewCardService(users IdentityStore, rooms RoomRepository, memberships MembershipRepository, cards CardRepository, idGenerator func() string, now func() time.Time) *CardService {
	return NewCardServiceWithLogger(users, rooms, memberships, cards, idGenerator, now, nil)
}

// NewCardServiceWithLogger constructs a card service with a specified logger.
func NewCardServiceWithLogger(users IdentityStore, rooms RoomRepository, memberships MembershipRepository, cards CardRepository, idGenerator func() string, now func() time.Time, logger *zap.Logger) *CardService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CardService{
		users:       users,
		rooms:       rooms,
		memberships: memberships,
		cards:       cards,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CardService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "CardService", operation, fields...)
}

func (s *CardService) ready() error {
	if s == nil {
		return fmt.Errorf("CardService is nil")
	}
	if s.rooms == nil || s.memberships == nil || s.cards == nil {
		return fmt.Errorf("card repositories not configured")
	}
	return nil
}

// clientInRoom resolves the caller and checks that they are a client member
// of roomID.
func (s *CardService) clientInRoom(ctx context.Context, principal Principal, roomID string) (User, Room, error) {
	caller, err := resolveCaller(ctx, s.users, principal)
	if err != nil {
		return User{}, Room{}, err
	}
	if err := requireRole(caller.Role, RoleClient); err != nil {
		return User{}, Room{}, err
	}
	room, err := loadRoom(ctx, s.rooms, roomID)
	if err != nil {
		return User{}, Room{}, err
	}
	member, err := isMember(ctx, s.memberships, room.ID, caller.ID)
	if err != nil {
		return User{}, Room{}, err
	}
	if !member {
		return User{}, Room{}, ErrForbidden
	}
	return caller, room, nil
}

// UpsertCard creates the caller's card for the given day or merges the
// submitted fields into the existing one. Fields missing from the submission
// keep their stored values; the card id and submission time never change.
func (s *CardService) UpsertCard(ctx context.Context, params UpsertCardParams) (card Card, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpsertCard",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("room_id", params.RoomID),
		zap.String("date", params.Date),
	)
	created := false
	defer func() {
		logOutcome(logger, err, "failed to save card", "card saved",
			zap.String("card_id", card.ID), zap.Bool("created", created))
	}()

	var (
		caller User
		room   Room
	)
	if caller, room, err = s.clientInRoom(ctx, params.Principal, params.RoomID); err != nil {
		return
	}

	var date time.Time
	if date, err = ParseDate(params.Date); err != nil {
		return
	}

	vErr := &ValidationError{}
	vErr.merge(params.Header.normalize())
	vErr.merge(params.DayData.normalize())
	if err = vErr.asError(); err != nil {
		return
	}

	key := CardKey{RoomID: room.ID, ClientID: caller.ID, Date: date}
	card, err = s.cards.UpsertCard(ctx, key, func(existing *Card) (Card, error) {
		now := s.now()
		if existing == nil {
			created = true
			return Card{
				ID:          s.idGenerator(),
				RoomID:      key.RoomID,
				ClientID:    key.ClientID,
				Date:        key.Date,
				Header:      params.Header.apply(CardHeader{}),
				DayData:     params.DayData.apply(DayData{}),
				SubmittedAt: now,
				UpdatedAt:   now,
			}, nil
		}
		created = false
		next := *existing
		next.Header = params.Header.apply(existing.Header)
		next.DayData = params.DayData.apply(existing.DayData)
		next.UpdatedAt = nextUpdatedAt(existing.UpdatedAt, now)
		return next, nil
	})
	if err != nil {
		return
	}
	card.ClientName, card.ClientEmail = "", ""
	return
}

// GetMyCards lists the caller's own cards in a room, optionally for one day.
func (s *CardService) GetMyCards(ctx context.Context, params GetMyCardsParams) (cards []Card, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "GetMyCards",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("room_id", params.RoomID),
		zap.String("date", params.Date),
	)
	defer func() {
		logOutcome(logger, err, "failed to list own cards", "own cards listed", zap.Int("result_count", len(cards)))
	}()

	var (
		caller User
		room   Room
	)
	if caller, room, err = s.clientInRoom(ctx, params.Principal, params.RoomID); err != nil {
		return
	}

	var date *time.Time
	if date, err = parseOptionalDate(params.Date); err != nil {
		return
	}

	cards, err = s.cards.ListCards(ctx, CardQuery{RoomID: room.ID, ClientID: caller.ID, Date: date})
	if err != nil {
		return
	}
	for i := range cards {
		cards[i].ClientName, cards[i].ClientEmail = "", ""
	}
	return
}

// GetCards lists a room's cards for its counselor. When ClientID is set the
// listing is scoped to that client; Date narrows either scope to one day.
func (s *CardService) GetCards(ctx context.Context, params GetCardsParams) (cards []Card, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "GetCards",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("room_id", params.RoomID),
		zap.String("client_id", params.ClientID),
		zap.String("date", params.Date),
	)
	defer func() {
		logOutcome(logger, err, "failed to list room cards", "room cards listed", zap.Int("result_count", len(cards)))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, params.Principal); err != nil {
		return
	}
	if err = requireRole(caller.Role, RoleCounselor); err != nil {
		return
	}

	var room Room
	if room, err = loadRoom(ctx, s.rooms, params.RoomID); err != nil {
		return
	}
	if room.CreatedBy != caller.ID {
		err = ErrForbidden
		return
	}

	query := CardQuery{RoomID: room.ID}
	if params.ClientID != "" {
		if _, err = s.users.GetUser(ctx, params.ClientID); err != nil {
			if isNotFound(err) {
				err = ErrClientNotFound
			}
			return
		}
		query.ClientID = params.ClientID
	}
	if query.Date, err = parseOptionalDate(params.Date); err != nil {
		return
	}

	cards, err = s.cards.ListCards(ctx, query)
	return
}
