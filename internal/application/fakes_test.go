package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/counseling-diary/internal/persistence"
)

// fakeStore implements every repository interface over maps and reports
// persistence sentinels the way the real stores do.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]UserCredentials
	rooms       map[string]Room
	memberships map[[2]string]Membership
	cards       map[CardKey]Card

	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[string]UserCredentials{},
		rooms:       map[string]Room{},
		memberships: map[[2]string]Membership{},
		cards:       map[CardKey]Card{},
	}
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) addUser(id, name string, role Role) User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := User{ID: id, Email: id + "@example.com", Name: name, Role: role, CreatedAt: time.Unix(0, 0).UTC()}
	user.UpdatedAt = user.CreatedAt
	f.users[id] = UserCredentials{User: user, PasswordHash: "hash"}
	return user
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return User{}, err
	}
	creds, ok := f.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return creds.User, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, creds UserCredentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.User.Email == creds.User.Email {
			return persistence.ErrDuplicate
		}
	}
	f.users[creds.User.ID] = creds
	return nil
}

func (f *fakeStore) UpdateUserName(ctx context.Context, id, name string, updatedAt time.Time) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.users[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	creds.User.Name = name
	creds.User.UpdatedAt = updatedAt
	f.users[id] = creds
	return creds.User, nil
}

func (f *fakeStore) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, creds := range f.users {
		if creds.User.Email == email {
			return creds, nil
		}
	}
	return UserCredentials{}, persistence.ErrNotFound
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserCredentialsByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeStore) CreateRoom(ctx context.Context, room Room, owner Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rooms {
		if existing.InviteCode == room.InviteCode {
			return persistence.ErrInviteCodeTaken
		}
	}
	f.rooms[room.ID] = room
	f.memberships[[2]string{owner.RoomID, owner.UserID}] = owner
	return nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (f *fakeStore) GetRoomByInviteCode(ctx context.Context, code string) (Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, room := range f.rooms {
		if room.InviteCode == code {
			return room, nil
		}
	}
	return Room{}, persistence.ErrNotFound
}

func (f *fakeStore) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := f.GetRoomByInviteCode(ctx, code)
	return err == nil, nil
}

func (f *fakeStore) ListRoomsByCreator(ctx context.Context, userID string) ([]Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Room
	for _, room := range f.rooms {
		if room.CreatedBy == userID {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteRoomCascade(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	for key := range f.cards {
		if key.RoomID == id {
			delete(f.cards, key)
		}
	}
	for key := range f.memberships {
		if key[0] == id {
			delete(f.memberships, key)
		}
	}
	delete(f.rooms, id)
	return nil
}

func (f *fakeStore) CreateMembership(ctx context.Context, m Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]string{m.RoomID, m.UserID}
	if _, ok := f.memberships[key]; ok {
		return persistence.ErrDuplicate
	}
	f.memberships[key] = m
	return nil
}

func (f *fakeStore) GetMembership(ctx context.Context, roomID, userID string) (Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[[2]string{roomID, userID}]
	if !ok {
		return Membership{}, persistence.ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) DeleteMembership(ctx context.Context, roomID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]string{roomID, userID}
	if _, ok := f.memberships[key]; !ok {
		return persistence.ErrNotFound
	}
	delete(f.memberships, key)
	return nil
}

func (f *fakeStore) ListMembers(ctx context.Context, roomID string) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Member
	for key, m := range f.memberships {
		if key[0] != roomID {
			continue
		}
		user := f.users[m.UserID].User
		out = append(out, Member{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, JoinedAt: m.JoinedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f *fakeStore) CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for key := range f.memberships {
		if key[0] == roomID && key[1] != excludeUserID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListRoomsForMember(ctx context.Context, userID string) ([]MemberRoom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []MemberRoom
	for key, m := range f.memberships {
		if key[1] == userID {
			out = append(out, MemberRoom{Room: f.rooms[key[0]], JoinedAt: m.JoinedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}

func (f *fakeStore) UpsertCard(ctx context.Context, key CardKey, mutate CardMutation) (Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var existing *Card
	if stored, ok := f.cards[key]; ok {
		existing = &stored
	}
	card, err := mutate(existing)
	if err != nil {
		return Card{}, err
	}
	if card.Key() != key {
		return Card{}, fmt.Errorf("card key changed: %w", persistence.ErrConstraintViolation)
	}
	f.cards[key] = card
	return card, nil
}

func (f *fakeStore) ListCards(ctx context.Context, query CardQuery) ([]Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Card
	for key, card := range f.cards {
		if !f.matches(key, query) {
			continue
		}
		client := f.users[card.ClientID].User
		card.ClientName, card.ClientEmail = client.Name, client.Email
		out = append(out, card)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeStore) CountCards(ctx context.Context, query CardQuery) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for key := range f.cards {
		if f.matches(key, query) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) matches(key CardKey, query CardQuery) bool {
	if query.RoomID != "" && key.RoomID != query.RoomID {
		return false
	}
	if query.ClientID != "" && key.ClientID != query.ClientID {
		return false
	}
	if query.Date != nil && !key.Date.Equal(*query.Date) {
		return false
	}
	return true
}

func (f *fakeStore) cardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cards)
}

func strPtr(v string) *string { return &v }
