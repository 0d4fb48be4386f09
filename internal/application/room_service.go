package application

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxRoomNameLength = 100

// RoomService enforces who may create, join, leave, view, and delete rooms.
type RoomService struct {
	users       IdentityStore
	rooms       RoomRepository
	memberships MembershipRepository
	invites     *InviteCodeAllocator
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(users IdentityStore, rooms RoomRepository, memberships MembershipRepository, invites *InviteCodeAllocator, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(users, rooms, memberships, invites, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(users IdentityStore, rooms RoomRepository, memberships MembershipRepository, invites *InviteCodeAllocator, idGenerator func() string, now func() time.Time, logger *zap.Logger) *RoomService {
	if invites == nil {
		invites = NewInviteCodeAllocator(rooms, WithAllocatorLogger(logger))
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		users:       users,
		rooms:       rooms,
		memberships: memberships,
		invites:     invites,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, fields...)
}

func (s *RoomService) ready() error {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil || s.memberships == nil {
		return fmt.Errorf("room repositories not configured")
	}
	return nil
}

// CreateRoom allocates an invite code and stores a room owned by the calling
// counselor, enrolling the counselor as its first member.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (summary RoomSummary, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", zap.String("principal_id", params.Principal.UserID))
	defer func() {
		logOutcome(logger, err, "failed to create room", "room created",
			zap.String("room_id", summary.ID), zap.String("invite_code", summary.InviteCode))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, params.Principal); err != nil {
		return
	}
	if err = requireRole(caller.Role, RoleCounselor); err != nil {
		return
	}

	name := sanitizeText(params.Name)
	vErr := &ValidationError{}
	switch {
	case name == "":
		vErr.add("name", "name is required")
	case utf8.RuneCountInString(name) > maxRoomNameLength:
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxRoomNameLength))
	}
	if err = vErr.asError(); err != nil {
		return
	}

	now := s.now()
	room := Room{
		ID:        s.idGenerator(),
		Name:      name,
		CreatedBy: caller.ID,
		CreatedAt: now,
	}
	owner := Membership{RoomID: room.ID, UserID: caller.ID, JoinedAt: now}

	room.InviteCode, err = s.invites.Allocate(ctx, func(code string) error {
		candidate := room
		candidate.InviteCode = code
		return s.rooms.CreateRoom(ctx, candidate, owner)
	})
	if err != nil {
		return
	}

	summary = RoomSummary{Room: room, ClientCount: 0}
	return
}

// ListRooms returns the rooms a counselor created or a client joined, each
// with its client count.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) (rooms []RoomSummary, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ListRooms", zap.String("principal_id", principal.UserID))
	defer func() {
		logOutcome(logger, err, "failed to list rooms", "rooms listed", zap.Int("result_count", len(rooms)))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, principal); err != nil {
		return
	}

	rooms, err = MatchRole(caller.Role,
		func() ([]RoomSummary, error) { return s.listOwnedRooms(ctx, caller.ID) },
		func() ([]RoomSummary, error) { return s.listJoinedRooms(ctx, caller.ID) },
	)
	return
}

func (s *RoomService) listOwnedRooms(ctx context.Context, counselorID string) ([]RoomSummary, error) {
	owned, err := s.rooms.ListRoomsByCreator(ctx, counselorID)
	if err != nil {
		return nil, err
	}
	out := make([]RoomSummary, 0, len(owned))
	for _, room := range owned {
		count, err := s.memberships.CountMembers(ctx, room.ID, room.CreatedBy)
		if err != nil {
			return nil, err
		}
		out = append(out, RoomSummary{Room: room, ClientCount: count})
	}
	return out, nil
}

func (s *RoomService) listJoinedRooms(ctx context.Context, clientID string) ([]RoomSummary, error) {
	joined, err := s.memberships.ListRoomsForMember(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]RoomSummary, 0, len(joined))
	for _, entry := range joined {
		count, err := s.memberships.CountMembers(ctx, entry.Room.ID, entry.Room.CreatedBy)
		if err != nil {
			return nil, err
		}
		joinedAt := entry.JoinedAt
		out = append(out, RoomSummary{Room: entry.Room, ClientCount: count, JoinedAt: &joinedAt})
	}
	return out, nil
}

// GetRoomDetail returns the room with its creator and client members. Only
// the creating counselor and client members may view it.
func (s *RoomService) GetRoomDetail(ctx context.Context, principal Principal, roomID string) (detail RoomDetail, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "GetRoomDetail",
		zap.String("principal_id", principal.UserID),
		zap.String("room_id", roomID),
	)
	defer func() {
		logOutcome(logger, err, "failed to load room detail", "room detail loaded", zap.Int("client_count", detail.ClientCount))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, principal); err != nil {
		return
	}

	var room Room
	if room, err = loadRoom(ctx, s.rooms, roomID); err != nil {
		return
	}

	var allowed bool
	allowed, err = MatchRole(caller.Role,
		func() (bool, error) { return room.CreatedBy == caller.ID, nil },
		func() (bool, error) { return isMember(ctx, s.memberships, room.ID, caller.ID) },
	)
	if err != nil {
		return
	}
	if !allowed {
		err = ErrForbidden
		return
	}

	detail.Room = room
	if creator, lookupErr := s.users.GetUser(ctx, room.CreatedBy); lookupErr == nil {
		detail.CreatorName = creator.Name
		detail.CreatorEmail = creator.Email
	} else if !isNotFound(lookupErr) {
		err = lookupErr
		return
	}

	var members []Member
	if members, err = s.memberships.ListMembers(ctx, room.ID); err != nil {
		return
	}
	detail.Clients = make([]Member, 0, len(members))
	for _, member := range members {
		if member.UserID == room.CreatedBy {
			continue
		}
		detail.Clients = append(detail.Clients, member)
	}
	detail.ClientCount = len(detail.Clients)
	return
}

// JoinRoom enrolls the calling client in the room identified by inviteCode.
func (s *RoomService) JoinRoom(ctx context.Context, params JoinRoomParams) (summary RoomSummary, err error) {
	if err = s.ready(); err != nil {
		return
	}

	code := strings.ToUpper(strings.TrimSpace(params.InviteCode))
	logger := s.loggerWith(ctx, "JoinRoom",
		zap.String("principal_id", params.Principal.UserID),
		zap.String("invite_code", code),
	)
	defer func() {
		logOutcome(logger, err, "failed to join room", "room joined", zap.String("room_id", summary.ID))
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, params.Principal); err != nil {
		return
	}
	if err = requireRole(caller.Role, RoleClient); err != nil {
		return
	}

	if code == "" {
		vErr := &ValidationError{}
		vErr.add("invite_code", "invite code is required")
		err = vErr
		return
	}

	var room Room
	room, err = s.rooms.GetRoomByInviteCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidInviteCode
		}
		return
	}

	var member bool
	if member, err = isMember(ctx, s.memberships, room.ID, caller.ID); err != nil {
		return
	}
	if member {
		err = ErrAlreadyJoined
		return
	}

	joinedAt := s.now()
	err = s.memberships.CreateMembership(ctx, Membership{RoomID: room.ID, UserID: caller.ID, JoinedAt: joinedAt})
	if err != nil {
		switch {
		case isDuplicate(err):
			err = ErrAlreadyJoined
		case isNotFound(err):
			err = ErrInvalidInviteCode
		}
		return
	}

	var count int
	if count, err = s.memberships.CountMembers(ctx, room.ID, room.CreatedBy); err != nil {
		return
	}
	summary = RoomSummary{Room: room, ClientCount: count, JoinedAt: &joinedAt}
	return
}

// LeaveRoom removes the calling client's membership. The room's counselor
// cannot leave; deleting the room is the only way out for them.
func (s *RoomService) LeaveRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "LeaveRoom",
		zap.String("principal_id", principal.UserID),
		zap.String("room_id", roomID),
	)
	defer func() {
		logOutcome(logger, err, "failed to leave room", "room left")
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, principal); err != nil {
		return
	}

	var room Room
	if room, err = loadRoom(ctx, s.rooms, roomID); err != nil {
		return
	}
	if room.CreatedBy == caller.ID {
		err = ErrForbidden
		return
	}

	if err = s.memberships.DeleteMembership(ctx, room.ID, caller.ID); err != nil {
		if isNotFound(err) {
			err = ErrForbidden
		}
		return
	}
	return
}

// DeleteRoom removes the room with all of its memberships and cards. Only the
// creating counselor may delete it.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		zap.String("principal_id", principal.UserID),
		zap.String("room_id", roomID),
	)
	defer func() {
		logOutcome(logger, err, "failed to delete room", "room deleted")
	}()

	var caller User
	if caller, err = resolveCaller(ctx, s.users, principal); err != nil {
		return
	}

	var room Room
	if room, err = loadRoom(ctx, s.rooms, roomID); err != nil {
		return
	}
	if room.CreatedBy != caller.ID {
		err = ErrForbidden
		return
	}

	if err = s.rooms.DeleteRoomCascade(ctx, room.ID); err != nil {
		if isNotFound(err) {
			err = ErrRoomNotFound
		}
		return
	}
	return
}
