package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/example/counseling-diary/internal/persistence"
	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
)

// Options configures the connection pool.
type Options struct {
	Dialect         dialect.Dialect
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SQLite only.
	BusyTimeout time.Duration
	JournalMode string
	Synchronous string
}

// DefaultOptions returns production settings for the dialect.
func DefaultOptions(d dialect.Dialect, dsn string) Options {
	opts := Options{
		Dialect:         d,
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
	if d == dialect.SQLite {
		opts.BusyTimeout = 30 * time.Second
		opts.JournalMode = "WAL"
		opts.Synchronous = "NORMAL"
		// SQLite allows a single writer; one connection serialises transactions.
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
	}
	return opts
}

// ConnectionPool owns the *sql.DB and the dialect it speaks.
type ConnectionPool struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewConnectionPool opens and configures a database handle.
func NewConnectionPool(ctx context.Context, opts Options) (*ConnectionPool, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("sqlstore: DSN cannot be empty")
	}
	if opts.Dialect == dialect.SQLite {
		if err := ensureSQLiteDir(opts.DSN); err != nil {
			return nil, err
		}
	}

	dsn := opts.DSN
	if opts.Dialect == dialect.SQLite {
		dsn = sqliteDSN(opts)
	}

	db, err := sql.Open(opts.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", opts.Dialect, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", opts.Dialect, err)
	}

	return &ConnectionPool{db: db, dialect: opts.Dialect}, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sqlstore: create database directory: %w", err)
	}
	return nil
}

// sqliteDSN appends connection pragmas so every pooled connection gets them.
func sqliteDSN(opts Options) string {
	pragmas := []string{"_pragma=foreign_keys(1)"}
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.JournalMode != "" {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=journal_mode(%s)", opts.JournalMode))
	}
	if opts.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("_pragma=synchronous(%s)", opts.Synchronous))
	}
	sep := "?"
	if strings.Contains(opts.DSN, "?") {
		sep = "&"
	}
	return opts.DSN + sep + strings.Join(pragmas, "&")
}

// DB returns the underlying handle.
func (cp *ConnectionPool) DB() *sql.DB { return cp.db }

// Dialect reports the SQL flavour of the pool.
func (cp *ConnectionPool) Dialect() dialect.Dialect { return cp.dialect }

// Close closes the handle.
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Ping checks connectivity.
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc runs inside a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction commits when fn succeeds and rolls back otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit transaction: %w", err)
	}
	return nil
}

// QueryHelper rebinds placeholders for the pool's dialect.
type QueryHelper struct {
	pool *ConnectionPool
}

// NewQueryHelper creates a helper bound to pool.
func NewQueryHelper(pool *ConnectionPool) *QueryHelper {
	return &QueryHelper{pool: pool}
}

func (qh *QueryHelper) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qh.pool.db.QueryRowContext(ctx, qh.pool.dialect.Rebind(query), args...)
}

func (qh *QueryHelper) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qh.pool.db.QueryContext(ctx, qh.pool.dialect.Rebind(query), args...)
}

func (qh *QueryHelper) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qh.pool.db.ExecContext(ctx, qh.pool.dialect.Rebind(query), args...)
}

func (qh *QueryHelper) QueryRowTx(ctx context.Context, tx *sql.Tx, query string, args ...any) *sql.Row {
	return tx.QueryRowContext(ctx, qh.pool.dialect.Rebind(query), args...)
}

func (qh *QueryHelper) ExecTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, qh.pool.dialect.Rebind(query), args...)
}

// ErrorMapper translates driver errors into persistence sentinels.
type ErrorMapper struct{}

// NewErrorMapper creates a new error mapper.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError maps driver specific failures; unknown errors pass through.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if strings.Contains(pgErr.ConstraintName, "invite_code") {
				return fmt.Errorf("%w: %v", persistence.ErrInviteCodeTaken, err)
			}
			return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
		case "23503", "23514":
			return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: rooms.invite_code"):
		return fmt.Errorf("%w: %v", persistence.ErrInviteCodeTaken, err)
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "PRIMARY KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"), strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

// RetryConfig configures retries of transient failures.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig retries a locked database a few times with backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  25 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHelper re-runs operations that failed on busy or locked databases.
type RetryHelper struct {
	config RetryConfig
}

// NewRetryHelper creates a new retry helper.
func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config}
}

// WithRetry runs fn, retrying transient lock errors only.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn func() error) error {
	delay := rh.config.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !isRetryableError(err) || attempt >= rh.config.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * rh.config.BackoffFactor)
		if delay > rh.config.MaxDelay {
			delay = rh.config.MaxDelay
		}
	}
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
