package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/counseling-diary/internal/persistence"
	"github.com/example/counseling-diary/internal/persistence/memory"
	"github.com/example/counseling-diary/internal/persistence/sqlstore"
	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
)

// StoreFactory builds an empty store for one test.
type StoreFactory struct {
	Name string
	New  func(tb testing.TB) persistence.Store
}

// StoreFactories lists every store implementation the contract tests cover.
func StoreFactories() []StoreFactory {
	return []StoreFactory{
		{Name: "memory", New: NewMemoryStore},
		{Name: "sqlite", New: NewSQLiteStore},
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(tb testing.TB) persistence.Store {
	tb.Helper()
	return memory.New()
}

// NewSQLiteStore opens a migrated SQLite database under tb.TempDir and closes
// it when the test ends.
func NewSQLiteStore(tb testing.TB) persistence.Store {
	tb.Helper()

	ctx := context.Background()
	opts := sqlstore.DefaultOptions(dialect.SQLite, filepath.Join(tb.TempDir(), "counseling.db"))
	store, err := sqlstore.Open(ctx, opts, nil)
	if err != nil {
		tb.Fatalf("open sqlite store: %v", err)
	}
	tb.Cleanup(func() {
		if err := store.Close(); err != nil {
			tb.Errorf("close sqlite store: %v", err)
		}
	})
	if err := store.Migrate(ctx); err != nil {
		tb.Fatalf("migrate sqlite store: %v", err)
	}
	return store
}

// SeedUsers inserts each fixture, failing the test on error.
func SeedUsers(tb testing.TB, store persistence.UserRepository, users ...UserFixture) {
	tb.Helper()
	for _, user := range users {
		if err := store.CreateUser(context.Background(), user.Persistence()); err != nil {
			tb.Fatalf("seed user %s: %v", user.ID, err)
		}
	}
}

// SeedRoom inserts room with its owner membership.
func SeedRoom(tb testing.TB, store persistence.RoomRepository, room RoomFixture) {
	tb.Helper()
	if err := store.CreateRoom(context.Background(), room.Persistence(), room.OwnerMembership()); err != nil {
		tb.Fatalf("seed room %s: %v", room.ID, err)
	}
}

// SeedMembership adds userID to roomID at joinedAt.
func SeedMembership(tb testing.TB, store persistence.MembershipRepository, membership persistence.Membership) {
	tb.Helper()
	if err := store.CreateMembership(context.Background(), membership); err != nil {
		tb.Fatalf("seed membership %s/%s: %v", membership.RoomID, membership.UserID, err)
	}
}

// SeedCard stores card, replacing any stored card with the same key.
func SeedCard(tb testing.TB, store persistence.CardRepository, card CardFixture) persistence.Card {
	tb.Helper()
	stored, err := store.UpsertCard(context.Background(), card.Persistence().Key(), card.Replace())
	if err != nil {
		tb.Fatalf("seed card %s: %v", card.ID, err)
	}
	return stored
}
