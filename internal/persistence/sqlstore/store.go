// Package sqlstore implements the persistence repositories on database/sql.
// The same queries serve SQLite (modernc.org/sqlite) and PostgreSQL (pgx);
// placeholders are rebound per dialect and timestamps are stored as RFC 3339
// text in both.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/persistence"
	"github.com/example/counseling-diary/internal/persistence/sqlstore/migration"
)

var _ persistence.Store = (*Store)(nil)

// Store bundles the SQL repositories over one connection pool.
type Store struct {
	*UserRepository
	*RoomRepository
	*MembershipRepository
	*CardRepository

	pool   *ConnectionPool
	logger *zap.Logger
}

// Open connects to the database described by opts.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := NewConnectionPool(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Store{
		UserRepository:       NewUserRepository(pool),
		RoomRepository:       NewRoomRepository(pool),
		MembershipRepository: NewMembershipRepository(pool),
		CardRepository:       NewCardRepository(pool),
		pool:                 pool,
		logger:               logger.With(zap.String("dialect", string(opts.Dialect))),
	}, nil
}

// Migrate applies the embedded schema migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := migration.Files(s.pool.Dialect())
	if err != nil {
		return err
	}
	manager := migration.NewManager(
		migration.NewScanner(),
		migration.NewExecutor(s.pool.DB(), s.pool.Dialect()),
		files,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// timeLayout is fixed width so that stored text sorts in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlstore: parse %s: %w", column, err)
	}
	return t, nil
}
