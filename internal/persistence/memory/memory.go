// Package memory provides a mutex guarded in-memory implementation of the
// persistence repositories. It enforces the same uniqueness and referential
// rules as the SQL schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/counseling-diary/internal/persistence"
)

var _ persistence.Store = (*Storage)(nil)

// Storage keeps every record in maps guarded by a single lock.
type Storage struct {
	mu          sync.RWMutex
	users       map[string]persistence.User
	rooms       map[string]persistence.Room
	memberships map[membershipKey]persistence.Membership
	cards       map[persistence.CardKey]persistence.Card
}

type membershipKey struct {
	roomID string
	userID string
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users:       make(map[string]persistence.User),
		rooms:       make(map[string]persistence.Room),
		memberships: make(map[membershipKey]persistence.Membership),
		cards:       make(map[persistence.CardKey]persistence.Card),
	}
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Storage) Close() error { return nil }

// --- UserRepository ---

func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("memory: user %s: %w", user.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	s.users[user.ID] = user
	return nil
}

func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	s.users[user.ID] = user
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.findByEmailLocked(email); ok {
		return user, nil
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.findByEmailLocked(email)
	return ok, nil
}

func (s *Storage) findByEmailLocked(email string) (persistence.User, bool) {
	lower := strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lower {
			return user, true
		}
	}
	return persistence.User{}, false
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	if existing, ok := s.findByEmailLocked(email); ok && existing.ID != id {
		return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
	}
	return nil
}

// --- RoomRepository ---

func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room, owner persistence.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("memory: room %s: %w", room.ID, persistence.ErrDuplicate)
	}
	if s.inviteCodeExistsLocked(room.InviteCode) {
		return persistence.ErrInviteCodeTaken
	}
	if _, ok := s.users[room.CreatedBy]; !ok {
		return fmt.Errorf("memory: room creator %s: %w", room.CreatedBy, persistence.ErrConstraintViolation)
	}
	if owner.RoomID != room.ID {
		return fmt.Errorf("memory: owner membership targets room %s: %w", owner.RoomID, persistence.ErrConstraintViolation)
	}
	if _, ok := s.users[owner.UserID]; !ok {
		return fmt.Errorf("memory: member %s: %w", owner.UserID, persistence.ErrConstraintViolation)
	}

	s.rooms[room.ID] = room
	s.memberships[membershipKey{roomID: owner.RoomID, userID: owner.UserID}] = owner
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (s *Storage) GetRoomByInviteCode(ctx context.Context, code string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.InviteCode == code {
			return room, nil
		}
	}
	return persistence.Room{}, persistence.ErrNotFound
}

func (s *Storage) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inviteCodeExistsLocked(code), nil
}

func (s *Storage) inviteCodeExistsLocked(code string) bool {
	for _, room := range s.rooms {
		if room.InviteCode == code {
			return true
		}
	}
	return false
}

// ListRoomsByCreator returns the user's rooms, newest first.
func (s *Storage) ListRoomsByCreator(ctx context.Context, userID string) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.Room, 0)
	for _, room := range s.rooms {
		if room.CreatedBy == userID {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *Storage) DeleteRoomCascade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	for key := range s.cards {
		if key.RoomID == id {
			delete(s.cards, key)
		}
	}
	for key := range s.memberships {
		if key.roomID == id {
			delete(s.memberships, key)
		}
	}
	delete(s.rooms, id)
	return nil
}

// --- MembershipRepository ---

func (s *Storage) CreateMembership(ctx context.Context, membership persistence.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[membership.RoomID]; !ok {
		return fmt.Errorf("memory: room %s: %w", membership.RoomID, persistence.ErrConstraintViolation)
	}
	if _, ok := s.users[membership.UserID]; !ok {
		return fmt.Errorf("memory: member %s: %w", membership.UserID, persistence.ErrConstraintViolation)
	}
	key := membershipKey{roomID: membership.RoomID, userID: membership.UserID}
	if _, ok := s.memberships[key]; ok {
		return fmt.Errorf("memory: membership %s/%s: %w", membership.RoomID, membership.UserID, persistence.ErrDuplicate)
	}

	s.memberships[key] = membership
	return nil
}

func (s *Storage) GetMembership(ctx context.Context, roomID, userID string) (persistence.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	membership, ok := s.memberships[membershipKey{roomID: roomID, userID: userID}]
	if !ok {
		return persistence.Membership{}, persistence.ErrNotFound
	}
	return membership, nil
}

func (s *Storage) DeleteMembership(ctx context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{roomID: roomID, userID: userID}
	if _, ok := s.memberships[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.memberships, key)
	return nil
}

// ListMembers returns the room's members ordered by join time.
func (s *Storage) ListMembers(ctx context.Context, roomID string) ([]persistence.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]persistence.Member, 0)
	for key, membership := range s.memberships {
		if key.roomID != roomID {
			continue
		}
		user := s.users[key.userID]
		members = append(members, persistence.Member{
			UserID:   user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Role:     user.Role,
			JoinedAt: membership.JoinedAt,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (s *Storage) CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.memberships {
		if key.roomID == roomID && key.userID != excludeUserID {
			count++
		}
	}
	return count, nil
}

// ListRoomsForMember returns the rooms the user belongs to, most recently joined first.
func (s *Storage) ListRoomsForMember(ctx context.Context, userID string) ([]persistence.MemberRoom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]persistence.MemberRoom, 0)
	for key, membership := range s.memberships {
		if key.userID != userID {
			continue
		}
		room, ok := s.rooms[key.roomID]
		if !ok {
			continue
		}
		rooms = append(rooms, persistence.MemberRoom{Room: room, JoinedAt: membership.JoinedAt})
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].JoinedAt.Equal(rooms[j].JoinedAt) {
			return rooms[i].Room.ID < rooms[j].Room.ID
		}
		return rooms[i].JoinedAt.After(rooms[j].JoinedAt)
	})
	return rooms, nil
}

// --- CardRepository ---

func (s *Storage) UpsertCard(ctx context.Context, key persistence.CardKey, mutate persistence.CardMutation) (persistence.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[key.RoomID]; !ok {
		return persistence.Card{}, fmt.Errorf("memory: room %s: %w", key.RoomID, persistence.ErrConstraintViolation)
	}
	if _, ok := s.users[key.ClientID]; !ok {
		return persistence.Card{}, fmt.Errorf("memory: client %s: %w", key.ClientID, persistence.ErrConstraintViolation)
	}

	var existing *persistence.Card
	if stored, ok := s.cards[key]; ok {
		existing = &stored
	}

	card, err := mutate(existing)
	if err != nil {
		return persistence.Card{}, err
	}
	if card.Key() != key {
		return persistence.Card{}, fmt.Errorf("memory: card key changed during upsert: %w", persistence.ErrConstraintViolation)
	}
	if existing != nil {
		card.ID = existing.ID
		card.SubmittedAt = existing.SubmittedAt
	}

	s.cards[key] = card
	return card, nil
}

func (s *Storage) GetCard(ctx context.Context, key persistence.CardKey) (persistence.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	card, ok := s.cards[key]
	if !ok {
		return persistence.Card{}, persistence.ErrNotFound
	}
	return card, nil
}

// ListCards returns matching cards, newest date first.
func (s *Storage) ListCards(ctx context.Context, filter persistence.CardFilter) ([]persistence.CardWithClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]persistence.CardWithClient, 0)
	for _, card := range s.cards {
		if !matchesCardFilter(card, filter) {
			continue
		}
		client := s.users[card.ClientID]
		cards = append(cards, persistence.CardWithClient{
			Card:        card,
			ClientName:  client.Name,
			ClientEmail: client.Email,
		})
	}
	sort.Slice(cards, func(i, j int) bool {
		a, b := cards[i].Card, cards[j].Card
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		return a.ID < b.ID
	})
	return cards, nil
}

func (s *Storage) CountCards(ctx context.Context, filter persistence.CardFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, card := range s.cards {
		if matchesCardFilter(card, filter) {
			count++
		}
	}
	return count, nil
}

func matchesCardFilter(card persistence.Card, filter persistence.CardFilter) bool {
	if filter.RoomID != "" && card.RoomID != filter.RoomID {
		return false
	}
	if filter.ClientID != "" && card.ClientID != filter.ClientID {
		return false
	}
	if filter.Date != "" && card.Date != filter.Date {
		return false
	}
	return true
}
