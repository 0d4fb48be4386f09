// Package testfixtures provides deterministic records, clocks, identifier
// generators and store harnesses shared by the package tests.
package testfixtures

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/counseling-diary/internal/persistence"
)

var (
	userCounter uint64
	roomCounter uint64
	cardCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic account record.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a client account unless overridden.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@example.com",
		Name:         fmt.Sprintf("User %03d", idx),
		Role:         "client",
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// NewCounselorFixture is NewUserFixture with the counselor role.
func NewCounselorFixture(opts ...UserOption) UserFixture {
	return NewUserFixture(append([]UserOption{WithUserRole("counselor")}, opts...)...)
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
		f.Email = strings.ToLower(id) + "@example.com"
	}
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

func WithUserName(name string) UserOption {
	return func(f *UserFixture) { f.Name = name }
}

func WithUserRole(role string) UserOption {
	return func(f *UserFixture) { f.Role = role }
}

func WithPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// Persistence converts the fixture into its stored form.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		Name:         f.Name,
		Role:         f.Role,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture is a deterministic room owned by CreatedBy.
type RoomFixture struct {
	ID         string
	Name       string
	InviteCode string
	CreatedBy  string
	CreatedAt  time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room owned by ownerID with a unique invite code.
func NewRoomFixture(ownerID string, opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		ID:         fmt.Sprintf("room-%03d", idx),
		Name:       fmt.Sprintf("Room %03d", idx),
		InviteCode: fmt.Sprintf("R%05d", idx),
		CreatedBy:  ownerID,
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

func WithInviteCode(code string) RoomOption {
	return func(f *RoomFixture) { f.InviteCode = code }
}

func WithRoomCreatedAt(at time.Time) RoomOption {
	return func(f *RoomFixture) { f.CreatedAt = at }
}

// Persistence converts the fixture into its stored form.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		InviteCode: f.InviteCode,
		CreatedBy:  f.CreatedBy,
		CreatedAt:  f.CreatedAt,
	}
}

// OwnerMembership is the membership created alongside the room.
func (f RoomFixture) OwnerMembership() persistence.Membership {
	return persistence.Membership{RoomID: f.ID, UserID: f.CreatedBy, JoinedAt: f.CreatedAt}
}

// ----------------------------- Card fixtures -----------------------------

// CardFixture is a deterministic diary card.
type CardFixture struct {
	ID                      string
	RoomID                  string
	ClientID                string
	Date                    string
	HeaderName              string
	WrittenDuringCounseling string
	Frequency               string
	DayData                 string
	SubmittedAt             time.Time
}

// CardOption configures the generated card fixture.
type CardOption func(*CardFixture)

// NewCardFixture returns a card for clientID in roomID on date.
func NewCardFixture(roomID, clientID, date string, opts ...CardOption) CardFixture {
	idx := atomic.AddUint64(&cardCounter, 1)
	fixture := CardFixture{
		ID:                      fmt.Sprintf("card-%03d", idx),
		RoomID:                  roomID,
		ClientID:                clientID,
		Date:                    date,
		HeaderName:              fmt.Sprintf("Card %03d", idx),
		WrittenDuringCounseling: "no",
		Frequency:               "daily",
		DayData:                 `{"anger":"3"}`,
		SubmittedAt:             referenceTime.Add(time.Duration(idx) * time.Second),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithCardID(id string) CardOption {
	return func(f *CardFixture) { f.ID = id }
}

func WithCardDayData(raw string) CardOption {
	return func(f *CardFixture) { f.DayData = raw }
}

func WithCardHeaderName(name string) CardOption {
	return func(f *CardFixture) { f.HeaderName = name }
}

// Persistence converts the fixture into its stored form.
func (f CardFixture) Persistence() persistence.Card {
	return persistence.Card{
		ID:                            f.ID,
		RoomID:                        f.RoomID,
		ClientID:                      f.ClientID,
		Date:                          f.Date,
		HeaderName:                    f.HeaderName,
		HeaderWrittenDuringCounseling: f.WrittenDuringCounseling,
		HeaderFrequency:               f.Frequency,
		DayData:                       f.DayData,
		SubmittedAt:                   f.SubmittedAt,
		UpdatedAt:                     f.SubmittedAt,
	}
}

// Replace is a card mutation that stores the fixture regardless of what is
// already persisted.
func (f CardFixture) Replace() persistence.CardMutation {
	return func(*persistence.Card) (persistence.Card, error) {
		return f.Persistence(), nil
	}
}
