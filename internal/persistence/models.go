package persistence

import "time"

// User is a stored account. Role holds "counselor" or "client".
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room is a counseling room owned by exactly one counselor.
type Room struct {
	ID         string
	Name       string
	InviteCode string
	CreatedBy  string
	CreatedAt  time.Time
}

// Membership links a user to a room.
type Membership struct {
	RoomID   string
	UserID   string
	JoinedAt time.Time
}

// Member is a membership joined with the member's account details.
type Member struct {
	UserID   string
	Name     string
	Email    string
	Role     string
	JoinedAt time.Time
}

// MemberRoom is a room seen from one member, carrying that member's join time.
type MemberRoom struct {
	Room     Room
	JoinedAt time.Time
}

// CardKey is the logical identity of a diary card.
type CardKey struct {
	RoomID   string
	ClientID string
	Date     string // YYYY-MM-DD
}

// Card is a stored diary card. DayData holds the JSON encoded day section.
type Card struct {
	ID                            string
	RoomID                        string
	ClientID                      string
	Date                          string
	HeaderName                    string
	HeaderWrittenDuringCounseling string
	HeaderFrequency               string
	DayData                       string
	SubmittedAt                   time.Time
	UpdatedAt                     time.Time
}

// Key returns the card's logical identity.
func (c Card) Key() CardKey {
	return CardKey{RoomID: c.RoomID, ClientID: c.ClientID, Date: c.Date}
}

// CardWithClient decorates a card with the submitting client's account details.
type CardWithClient struct {
	Card        Card
	ClientName  string
	ClientEmail string
}
