package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/counseling-diary/internal/persistence"
)

// IdentityStore resolves accounts by id.
type IdentityStore interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// UserRepository captures the account operations needed by the auth and profile services.
type UserRepository interface {
	IdentityStore
	CreateUser(ctx context.Context, creds UserCredentials) error
	UpdateUserName(ctx context.Context, id, name string, updatedAt time.Time) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// RoomRepository captures room persistence. CreateRoom stores the owner's
// membership in the same unit of work and DeleteRoomCascade removes the
// room's cards and memberships with it.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room, owner Membership) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (Room, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	ListRoomsByCreator(ctx context.Context, userID string) ([]Room, error)
	DeleteRoomCascade(ctx context.Context, id string) error
}

// MembershipRepository captures membership persistence.
type MembershipRepository interface {
	CreateMembership(ctx context.Context, membership Membership) error
	GetMembership(ctx context.Context, roomID, userID string) (Membership, error)
	DeleteMembership(ctx context.Context, roomID, userID string) error
	ListMembers(ctx context.Context, roomID string) ([]Member, error)
	CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error)
	ListRoomsForMember(ctx context.Context, userID string) ([]MemberRoom, error)
}

// CardMutation derives the card to store from the stored one, nil when absent.
type CardMutation func(existing *Card) (Card, error)

// CardRepository captures card persistence. UpsertCard must apply mutate and
// write its result atomically per key.
type CardRepository interface {
	UpsertCard(ctx context.Context, key CardKey, mutate CardMutation) (Card, error)
	ListCards(ctx context.Context, query CardQuery) ([]Card, error)
	CountCards(ctx context.Context, query CardQuery) (int, error)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, persistence.ErrDuplicate)
}

// resolveCaller loads the account behind principal. The stored role wins over
// whatever the principal claims.
func resolveCaller(ctx context.Context, users IdentityStore, principal Principal) (User, error) {
	if principal.UserID == "" || users == nil {
		return User{}, ErrUnauthorized
	}
	user, err := users.GetUser(ctx, principal.UserID)
	if err != nil {
		if isNotFound(err) {
			return User{}, ErrUnauthorized
		}
		return User{}, err
	}
	if !user.Role.Valid() {
		return User{}, ErrUnauthorized
	}
	return user, nil
}

// loadRoom maps a missing room to ErrRoomNotFound.
func loadRoom(ctx context.Context, rooms RoomRepository, id string) (Room, error) {
	if id == "" {
		return Room{}, ErrRoomNotFound
	}
	room, err := rooms.GetRoom(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, err
	}
	return room, nil
}

// isMember reports whether userID holds a membership in roomID.
func isMember(ctx context.Context, memberships MembershipRepository, roomID, userID string) (bool, error) {
	_, err := memberships.GetMembership(ctx, roomID, userID)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}
