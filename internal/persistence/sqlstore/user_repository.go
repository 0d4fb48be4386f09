package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/counseling-diary/internal/persistence"
)

// UserRepository implements persistence.UserRepository.
type UserRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUserRepository creates a user repository on pool.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, helper: NewQueryHelper(pool), mapper: NewErrorMapper()}
}

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

// CreateUser inserts a new account.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.Email == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Name,
		user.Role,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateUser overwrites the mutable fields of an account.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	result, err := r.helper.Exec(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, name = ?, updated_at = ?
		WHERE id = ?`,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.Name,
		formatTime(user.UpdatedAt),
		user.ID,
	)
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

// GetUser loads an account by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.scanUser(r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByEmail loads an account by case-insensitive email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.scanUser(r.helper.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email))
}

// EmailExists reports whether an account already uses email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.helper.QueryRow(ctx, `SELECT 1 FROM users WHERE LOWER(email) = LOWER(?)`, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return true, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (persistence.User, error) {
	var (
		user                 persistence.User
		createdAt, updatedAt string
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &createdAt, &updatedAt)
	if err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
