package persistence

import "context"

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// RoomRepository stores rooms. CreateRoom persists the room together with the
// owner's membership; DeleteRoomCascade removes the room's cards, memberships
// and the room itself as one unit.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room, owner Membership) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (Room, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	ListRoomsByCreator(ctx context.Context, userID string) ([]Room, error)
	DeleteRoomCascade(ctx context.Context, id string) error
}

// MembershipRepository stores room memberships.
type MembershipRepository interface {
	CreateMembership(ctx context.Context, membership Membership) error
	GetMembership(ctx context.Context, roomID, userID string) (Membership, error)
	DeleteMembership(ctx context.Context, roomID, userID string) error
	ListMembers(ctx context.Context, roomID string) ([]Member, error)
	CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error)
	ListRoomsForMember(ctx context.Context, userID string) ([]MemberRoom, error)
}

// CardFilter narrows card queries. Empty fields do not filter.
type CardFilter struct {
	RoomID   string
	ClientID string
	Date     string
}

// CardMutation derives the card to store from the currently stored one, which
// is nil when no card exists for the key yet.
type CardMutation func(existing *Card) (Card, error)

// CardRepository stores diary cards. UpsertCard reads the card stored under
// key and writes the mutation result atomically so concurrent submissions for
// the same key never produce two rows.
type CardRepository interface {
	UpsertCard(ctx context.Context, key CardKey, mutate CardMutation) (Card, error)
	GetCard(ctx context.Context, key CardKey) (Card, error)
	ListCards(ctx context.Context, filter CardFilter) ([]CardWithClient, error)
	CountCards(ctx context.Context, filter CardFilter) (int, error)
}

// Store bundles every repository with lifecycle hooks.
type Store interface {
	UserRepository
	RoomRepository
	MembershipRepository
	CardRepository
	Ping(ctx context.Context) error
	Close() error
}
