package application

import "time"

// Principal identifies the caller of a service method. Services re-resolve
// the account behind UserID before acting; Role is advisory.
type Principal struct {
	UserID string
	Role   Role
}

// User is an account as seen by the services.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials pairs an account with its password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Room is a counseling room owned by one counselor.
type Room struct {
	ID         string
	Name       string
	InviteCode string
	CreatedBy  string
	CreatedAt  time.Time
}

// RoomSummary decorates a room with its client count and, for clients, the
// caller's own join time.
type RoomSummary struct {
	Room
	ClientCount int
	JoinedAt    *time.Time
}

// Membership records that a user belongs to a room.
type Membership struct {
	RoomID   string
	UserID   string
	JoinedAt time.Time
}

// Member is a membership joined with account details.
type Member struct {
	UserID   string
	Name     string
	Email    string
	Role     Role
	JoinedAt time.Time
}

// MemberRoom is a room together with one member's join time.
type MemberRoom struct {
	Room     Room
	JoinedAt time.Time
}

// RoomDetail is the full view of a room for its counselor and client members.
type RoomDetail struct {
	Room
	CreatorName  string
	CreatorEmail string
	ClientCount  int
	Clients      []Member
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Name      string
}

// JoinRoomParams wraps the data required to join a room.
type JoinRoomParams struct {
	Principal  Principal
	InviteCode string
}

// Profile is an account with optional statistics. Stats and Rooms are only
// populated by GetProfile.
type Profile struct {
	User  User
	Stats *ProfileStats
	Rooms []ProfileRoom
}

// ProfileStats holds the role-specific totals. Counselors get RoomCount and
// TotalClientCards; clients get DBTCardCount.
type ProfileStats struct {
	RoomCount        int
	TotalClientCards int
	DBTCardCount     int
}

// ProfileRoom is one room in a profile listing.
type ProfileRoom struct {
	RoomID    string
	Name      string
	CreatedAt *time.Time
	JoinedAt  *time.Time
	CardCount int
}

// UpdateProfileParams carries the mutable profile fields. A nil or blank name
// leaves the stored name unchanged.
type UpdateProfileParams struct {
	Principal Principal
	Name      *string
}

// SignupParams carries a new account request.
type SignupParams struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// LoginParams carries a credential check.
type LoginParams struct {
	Email    string
	Password string
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}
