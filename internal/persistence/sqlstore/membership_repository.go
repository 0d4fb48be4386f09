package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/counseling-diary/internal/persistence"
)

// MembershipRepository implements persistence.MembershipRepository.
type MembershipRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMembershipRepository creates a membership repository on pool.
func NewMembershipRepository(pool *ConnectionPool) *MembershipRepository {
	return &MembershipRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

// CreateMembership inserts a membership; a repeat insert yields ErrDuplicate.
func (r *MembershipRepository) CreateMembership(ctx context.Context, membership persistence.Membership) error {
	_, err := r.helper.Exec(ctx, `
		INSERT INTO room_memberships (room_id, user_id, joined_at)
		VALUES (?, ?, ?)`,
		membership.RoomID, membership.UserID, formatTime(membership.JoinedAt),
	)
	return r.mapper.MapError(err)
}

func (r *MembershipRepository) GetMembership(ctx context.Context, roomID, userID string) (persistence.Membership, error) {
	var (
		membership = persistence.Membership{RoomID: roomID, UserID: userID}
		joinedAt   string
	)
	err := r.helper.QueryRow(ctx, `
		SELECT joined_at FROM room_memberships WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&joinedAt)
	if err != nil {
		return persistence.Membership{}, r.mapper.MapError(err)
	}
	if membership.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
		return persistence.Membership{}, err
	}
	return membership, nil
}

func (r *MembershipRepository) DeleteMembership(ctx context.Context, roomID, userID string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM room_memberships WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListMembers returns the room's members with account details, by join time.
func (r *MembershipRepository) ListMembers(ctx context.Context, roomID string) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, m.joined_at
		FROM room_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ?
		ORDER BY m.joined_at ASC, u.id ASC`, roomID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	members := make([]persistence.Member, 0)
	for rows.Next() {
		var (
			member   persistence.Member
			joinedAt string
		)
		if err := rows.Scan(&member.UserID, &member.Name, &member.Email, &member.Role, &joinedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if member.JoinedAt, err = parseTime("joined_at", joinedAt); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, r.mapper.MapError(rows.Err())
}

func (r *MembershipRepository) CountMembers(ctx context.Context, roomID, excludeUserID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx, `
		SELECT COUNT(*) FROM room_memberships WHERE room_id = ? AND user_id <> ?`,
		roomID, excludeUserID,
	).Scan(&count)
	return count, r.mapper.MapError(err)
}

// ListRoomsForMember returns the user's rooms, most recently joined first.
func (r *MembershipRepository) ListRoomsForMember(ctx context.Context, userID string) ([]persistence.MemberRoom, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+roomColumns+`, m.joined_at
		FROM room_memberships m
		JOIN rooms r ON r.id = m.room_id
		WHERE m.user_id = ?
		ORDER BY m.joined_at DESC, r.id ASC`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.MemberRoom, 0)
	for rows.Next() {
		room, joinedAt, err := scanMemberRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, persistence.MemberRoom{Room: room, JoinedAt: joinedAt})
	}
	return rooms, r.mapper.MapError(rows.Err())
}

func scanMemberRoom(rows *sql.Rows) (persistence.Room, time.Time, error) {
	var (
		room                persistence.Room
		createdAt, joinedAt string
	)
	if err := rows.Scan(&room.ID, &room.Name, &room.InviteCode, &room.CreatedBy, &createdAt, &joinedAt); err != nil {
		return persistence.Room{}, time.Time{}, err
	}
	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, time.Time{}, err
	}
	joined, err := parseTime("joined_at", joinedAt)
	if err != nil {
		return persistence.Room{}, time.Time{}, err
	}
	return room, joined, nil
}
