package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/counseling-diary/internal/application"
	"github.com/example/counseling-diary/internal/auth"
	"github.com/example/counseling-diary/internal/persistence"
)

// storeAdapter presents a persistence.Store through the application
// repository interfaces.
type storeAdapter struct {
	store persistence.Store
}

func newStoreAdapter(store persistence.Store) *storeAdapter {
	return &storeAdapter{store: store}
}

func (a *storeAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.store.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored)
}

func (a *storeAdapter) CreateUser(ctx context.Context, creds application.UserCredentials) error {
	return a.store.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash))
}

func (a *storeAdapter) UpdateUserName(ctx context.Context, id, name string, updatedAt time.Time) (application.User, error) {
	current, err := a.store.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	current.Name = name
	current.UpdatedAt = updatedAt
	if err := a.store.UpdateUser(ctx, current); err != nil {
		return application.User{}, err
	}
	return toApplicationUser(current)
}

func (a *storeAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	user, err := toApplicationUser(stored)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{User: user, PasswordHash: stored.PasswordHash}, nil
}

func (a *storeAdapter) EmailExists(ctx context.Context, email string) (bool, error) {
	return a.store.EmailExists(ctx, email)
}

func (a *storeAdapter) CreateRoom(ctx context.Context, room application.Room, owner application.Membership) error {
	return a.store.CreateRoom(ctx, toPersistenceRoom(room), toPersistenceMembership(owner))
}

func (a *storeAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.store.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *storeAdapter) GetRoomByInviteCode(ctx context.Context, code string) (application.Room, error) {
	stored, err := a.store.GetRoomByInviteCode(ctx, code)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *storeAdapter) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	return a.store.InviteCodeExists(ctx, code)
}

func (a *storeAdapter) ListRoomsByCreator(ctx context.Context, userID string) ([]application.Room, error) {
	models, err := a.store.ListRoomsByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

func (a *storeAdapter) DeleteRoomCascade(ctx context.Context, id string) error {
	return a.store.DeleteRoomCascade(ctx, id)
}

func (a *storeAdapter) CreateMembership(ctx context.Context, membership application.Membership) error {
	return a.store.CreateMembership(ctx, toPersistenceMembership(membership))
}

func (a *storeAdapter) GetMembership(ctx context.Context, roomID, userID string) (application.Membership, error) {
	stored, err := a.store.GetMembership(ctx, roomID, userID)
	if err != nil {
		return application.Membership{}, err
	}
	return application.Membership{RoomID: stored.RoomID, UserID: stored.UserID, JoinedAt: stored.JoinedAt}, nil
}

func (a *storeAdapter) DeleteMembership(ctx context.Context, roomID, userID string) error {
	return a.store.DeleteMembership(ctx, roomID, userID)
}

func (a *storeAdapter) ListMembers(ctx context.Context, roomID string) ([]application.Member, error) {
	models, err := a.store.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	members := make([]application.Member, 0, len(models))
	for _, model := range models {
		role, err := application.ParseRole(model.Role)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", model.UserID, err)
		}
		members = append(members, application.Member{
			UserID:   model.UserID,
			Name:     model.Name,
			Email:    model.Email,
			Role:     role,
			JoinedAt: model.JoinedAt,
		})
	}
	return members, nil
}

func (a *storeAdapter) CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error) {
	return a.store.CountMembers(ctx, roomID, excludeUserID)
}

func (a *storeAdapter) ListRoomsForMember(ctx context.Context, userID string) ([]application.MemberRoom, error) {
	models, err := a.store.ListRoomsForMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.MemberRoom, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, application.MemberRoom{Room: toApplicationRoom(model.Room), JoinedAt: model.JoinedAt})
	}
	return rooms, nil
}

func (a *storeAdapter) UpsertCard(ctx context.Context, key application.CardKey, mutate application.CardMutation) (application.Card, error) {
	stored, err := a.store.UpsertCard(ctx, toPersistenceCardKey(key), func(existing *persistence.Card) (persistence.Card, error) {
		var current *application.Card
		if existing != nil {
			card, err := toApplicationCard(*existing)
			if err != nil {
				return persistence.Card{}, err
			}
			current = &card
		}
		next, err := mutate(current)
		if err != nil {
			return persistence.Card{}, err
		}
		return toPersistenceCard(next)
	})
	if err != nil {
		return application.Card{}, err
	}
	return toApplicationCard(stored)
}

func (a *storeAdapter) ListCards(ctx context.Context, query application.CardQuery) ([]application.Card, error) {
	models, err := a.store.ListCards(ctx, toCardFilter(query))
	if err != nil {
		return nil, err
	}
	cards := make([]application.Card, 0, len(models))
	for _, model := range models {
		card, err := toApplicationCard(model.Card)
		if err != nil {
			return nil, err
		}
		card.ClientName = model.ClientName
		card.ClientEmail = model.ClientEmail
		cards = append(cards, card)
	}
	return cards, nil
}

func (a *storeAdapter) CountCards(ctx context.Context, query application.CardQuery) (int, error) {
	return a.store.CountCards(ctx, toCardFilter(query))
}

func toApplicationUser(model persistence.User) (application.User, error) {
	role, err := application.ParseRole(model.Role)
	if err != nil {
		return application.User{}, fmt.Errorf("user %s: %w", model.ID, err)
	}
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Name:      model.Name,
		Role:      role,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: passwordHash,
		Name:         user.Name,
		Role:         user.Role.String(),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:         model.ID,
		Name:       model.Name,
		InviteCode: model.InviteCode,
		CreatedBy:  model.CreatedBy,
		CreatedAt:  model.CreatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:         room.ID,
		Name:       room.Name,
		InviteCode: room.InviteCode,
		CreatedBy:  room.CreatedBy,
		CreatedAt:  room.CreatedAt,
	}
}

func toPersistenceMembership(m application.Membership) persistence.Membership {
	return persistence.Membership{RoomID: m.RoomID, UserID: m.UserID, JoinedAt: m.JoinedAt}
}

func toPersistenceCardKey(key application.CardKey) persistence.CardKey {
	return persistence.CardKey{RoomID: key.RoomID, ClientID: key.ClientID, Date: application.FormatDate(key.Date)}
}

func toCardFilter(query application.CardQuery) persistence.CardFilter {
	filter := persistence.CardFilter{RoomID: query.RoomID, ClientID: query.ClientID}
	if query.Date != nil {
		filter.Date = application.FormatDate(*query.Date)
	}
	return filter
}

// toApplicationCard decodes the stored day section. An empty column decodes
// to an empty DayData.
func toApplicationCard(model persistence.Card) (application.Card, error) {
	date, err := application.ParseDate(model.Date)
	if err != nil {
		return application.Card{}, fmt.Errorf("card %s: stored date %q: %w", model.ID, model.Date, err)
	}
	var day application.DayData
	if model.DayData != "" {
		if err := json.Unmarshal([]byte(model.DayData), &day); err != nil {
			return application.Card{}, fmt.Errorf("card %s: decode day data: %w", model.ID, err)
		}
	}
	return application.Card{
		ID:       model.ID,
		RoomID:   model.RoomID,
		ClientID: model.ClientID,
		Date:     date,
		Header: application.CardHeader{
			Name:                    model.HeaderName,
			WrittenDuringCounseling: model.HeaderWrittenDuringCounseling,
			Frequency:               model.HeaderFrequency,
		},
		DayData:     day,
		SubmittedAt: model.SubmittedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

func toPersistenceCard(card application.Card) (persistence.Card, error) {
	day, err := json.Marshal(card.DayData)
	if err != nil {
		return persistence.Card{}, fmt.Errorf("encode day data: %w", err)
	}
	return persistence.Card{
		ID:                            card.ID,
		RoomID:                        card.RoomID,
		ClientID:                      card.ClientID,
		Date:                          application.FormatDate(card.Date),
		HeaderName:                    card.Header.Name,
		HeaderWrittenDuringCounseling: card.Header.WrittenDuringCounseling,
		HeaderFrequency:               card.Header.Frequency,
		DayData:                       string(day),
		SubmittedAt:                   card.SubmittedAt,
		UpdatedAt:                     card.UpdatedAt,
	}, nil
}

// tokenIssuerAdapter exposes an auth.Issuer as an application.TokenIssuer.
type tokenIssuerAdapter struct {
	issuer *auth.Issuer
}

func (a tokenIssuerAdapter) Issue(ctx context.Context, principal application.Principal) (application.Token, error) {
	issued, err := a.issuer.Issue(principal.UserID, principal.Role.String())
	if err != nil {
		return application.Token{}, err
	}
	return application.Token{Value: issued.Value, ID: issued.ID, ExpiresAt: issued.ExpiresAt}, nil
}

func (a tokenIssuerAdapter) Parse(ctx context.Context, value string) (application.TokenClaims, error) {
	parsed, err := a.issuer.Parse(value)
	if err != nil {
		return application.TokenClaims{}, err
	}
	role, err := application.ParseRole(parsed.Role)
	if err != nil {
		return application.TokenClaims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	return application.TokenClaims{
		ID:        parsed.ID,
		UserID:    parsed.UserID,
		Role:      role,
		ExpiresAt: parsed.ExpiresAt,
	}, nil
}
