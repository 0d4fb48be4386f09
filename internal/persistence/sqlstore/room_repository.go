package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/counseling-diary/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewRoomRepository creates a room repository on pool.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const roomColumns = `r.id, r.name, r.invite_code, r.created_by, r.created_at`

// CreateRoom inserts the room and its owner's membership in one transaction.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room, owner persistence.Membership) error {
	if room.ID == "" || room.InviteCode == "" || owner.RoomID != room.ID {
		return persistence.ErrConstraintViolation
	}
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO rooms (id, name, invite_code, created_by, created_at)
				VALUES (?, ?, ?, ?, ?)`,
				room.ID, room.Name, room.InviteCode, room.CreatedBy, formatTime(room.CreatedAt),
			); err != nil {
				return r.mapper.MapError(err)
			}
			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO room_memberships (room_id, user_id, joined_at)
				VALUES (?, ?, ?)`,
				owner.RoomID, owner.UserID, formatTime(owner.JoinedAt),
			); err != nil {
				return r.mapper.MapError(err)
			}
			return nil
		})
	})
}

// GetRoom loads a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	if id == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}
	room, err := scanRoom(r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = ?`, id))
	return room, r.mapper.MapError(err)
}

// GetRoomByInviteCode loads the room owning code.
func (r *RoomRepository) GetRoomByInviteCode(ctx context.Context, code string) (persistence.Room, error) {
	room, err := scanRoom(r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.invite_code = ?`, code))
	return room, r.mapper.MapError(err)
}

// InviteCodeExists reports whether any room uses code.
func (r *RoomRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.helper.QueryRow(ctx, `SELECT 1 FROM rooms WHERE invite_code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return true, nil
}

// ListRoomsByCreator returns the counselor's rooms, newest first.
func (r *RoomRepository) ListRoomsByCreator(ctx context.Context, userID string) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms r
		WHERE r.created_by = ?
		ORDER BY r.created_at DESC, r.id ASC`, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rooms := make([]persistence.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	return rooms, r.mapper.MapError(rows.Err())
}

// DeleteRoomCascade removes cards, memberships and the room in one transaction.
func (r *RoomRepository) DeleteRoomCascade(ctx context.Context, id string) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var one int
			if err := r.helper.QueryRowTx(ctx, tx, `SELECT 1 FROM rooms WHERE id = ?`, id).Scan(&one); err != nil {
				return r.mapper.MapError(err)
			}
			for _, stmt := range []string{
				`DELETE FROM dbt_cards WHERE room_id = ?`,
				`DELETE FROM room_memberships WHERE room_id = ?`,
				`DELETE FROM rooms WHERE id = ?`,
			} {
				if _, err := r.helper.ExecTx(ctx, tx, stmt, id); err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room      persistence.Room
		createdAt string
	)
	if err := row.Scan(&room.ID, &room.Name, &room.InviteCode, &room.CreatedBy, &createdAt); err != nil {
		return persistence.Room{}, err
	}
	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
