package application

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxUserNameLength = 50

// ProfileService composes account details with room and card statistics.
type ProfileService struct {
	users       UserRepository
	rooms       RoomRepository
	memberships MembershipRepository
	cards       CardRepository
	now         func() time.Time
	logger      *zap.Logger
}

// NewProfileService constructs a profile service with the provided dependencies.
func NewProfileService(users UserRepository, rooms RoomRepository, memberships MembershipRepository, cards CardRepository, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(users, rooms, memberships, cards, now, nil)
}

// NewProfileServiceWithLogger constructs a profile service with a specified logger.
func NewProfileServiceWithLogger(users UserRepository, rooms RoomRepository, memberships MembershipRepository, cards CardRepository, now func() time.Time, logger *zap.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	return &ProfileService{
		users:       users,
		rooms:       rooms,
		memberships: memberships,
		cards:       cards,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, fields...)
}

// GetProfile returns the caller's account with role-specific statistics and
// per-room card counts.
func (s *ProfileService) GetProfile(ctx context.Context, principal Principal) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if s.users == nil || s.rooms == nil || s.memberships == nil || s.cards == nil {
		err = fmt.Errorf("profile repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetProfile", zap.String("principal_id", principal.UserID))
	defer func() {
		logOutcome(logger, err, "failed to load profile", "profile loaded", zap.Int("room_count", len(profile.Rooms)))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, principal); err != nil {
		return
	}

	profile, err = MatchRole(caller.Role,
		func() (Profile, error) { return s.counselorProfile(ctx, caller) },
		func() (Profile, error) { return s.clientProfile(ctx, caller) },
	)
	return
}

func (s *ProfileService) counselorProfile(ctx context.Context, caller User) (Profile, error) {
	owned, err := s.rooms.ListRoomsByCreator(ctx, caller.ID)
	if err != nil {
		return Profile{}, err
	}

	stats := &ProfileStats{RoomCount: len(owned)}
	rooms := make([]ProfileRoom, 0, len(owned))
	for _, room := range owned {
		count, err := s.cards.CountCards(ctx, CardQuery{RoomID: room.ID})
		if err != nil {
			return Profile{}, err
		}
		stats.TotalClientCards += count
		createdAt := room.CreatedAt
		rooms = append(rooms, ProfileRoom{RoomID: room.ID, Name: room.Name, CreatedAt: &createdAt, CardCount: count})
	}
	return Profile{User: caller, Stats: stats, Rooms: rooms}, nil
}

func (s *ProfileService) clientProfile(ctx context.Context, caller User) (Profile, error) {
	total, err := s.cards.CountCards(ctx, CardQuery{ClientID: caller.ID})
	if err != nil {
		return Profile{}, err
	}
	joined, err := s.memberships.ListRoomsForMember(ctx, caller.ID)
	if err != nil {
		return Profile{}, err
	}

	rooms := make([]ProfileRoom, 0, len(joined))
	for _, entry := range joined {
		count, err := s.cards.CountCards(ctx, CardQuery{RoomID: entry.Room.ID, ClientID: caller.ID})
		if err != nil {
			return Profile{}, err
		}
		joinedAt := entry.JoinedAt
		rooms = append(rooms, ProfileRoom{RoomID: entry.Room.ID, Name: entry.Room.Name, JoinedAt: &joinedAt, CardCount: count})
	}
	return Profile{User: caller, Stats: &ProfileStats{DBTCardCount: total}, Rooms: rooms}, nil
}

// UpdateProfile overwrites the caller's name when a non-blank one is given.
// Email and role never change. The result carries no statistics.
func (s *ProfileService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", zap.String("principal_id", params.Principal.UserID))
	updated := false
	defer func() {
		logOutcome(logger, err, "failed to update profile", "profile updated", zap.Bool("changed", updated))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, params.Principal); err != nil {
		return
	}
	profile = Profile{User: caller}

	if params.Name == nil {
		return
	}
	name := sanitizeText(*params.Name)
	if name == "" {
		return
	}
	if utf8.RuneCountInString(name) > maxUserNameLength {
		vErr := &ValidationError{}
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxUserNameLength))
		err = vErr
		return
	}
	if name == caller.Name {
		return
	}

	var user User
	user, err = s.users.UpdateUserName(ctx, caller.ID, name, nextUpdatedAt(caller.UpdatedAt, s.now()))
	if err != nil {
		if isNotFound(err) {
			err = ErrUnauthorized
		}
		return
	}
	updated = true
	profile = Profile{User: user}
	return
}
