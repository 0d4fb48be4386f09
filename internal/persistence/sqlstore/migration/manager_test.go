package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
	_ "modernc.org/sqlite"
)

func dialectOf(name string) dialect.Dialect {
	d, _ := dialect.Parse(name)
	return d
}

type executorStub struct {
	applied  []AppliedMigration
	executed []string
	failOn   string
}

func (e *executorStub) ExecuteMigration(ctx context.Context, migration Migration) error {
	if migration.Version == e.failOn {
		return errors.New("boom")
	}
	e.executed = append(e.executed, migration.Version)
	return nil
}

func (e *executorStub) InitializeVersionTable(ctx context.Context) error { return nil }

func (e *executorStub) RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error {
	e.applied = append(e.applied, AppliedMigration{Version: migration.Version, AppliedAt: time.Now()})
	return nil
}

func (e *executorStub) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	return append([]AppliedMigration(nil), e.applied...), nil
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
		"002_second.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
	}
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	t.Run("applies only pending migrations", func(t *testing.T) {
		t.Parallel()

		exec := &executorStub{applied: []AppliedMigration{{Version: "001"}}}
		manager := NewManager(NewScanner(), exec, testFiles(), nil)

		if err := manager.RunMigrations(context.Background()); err != nil {
			t.Fatalf("RunMigrations returned error: %v", err)
		}
		if len(exec.executed) != 1 || exec.executed[0] != "002" {
			t.Fatalf("expected only 002 to run, got %v", exec.executed)
		}

		status, err := manager.Status(context.Background())
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if status.CurrentVersion != "002" || status.PendingCount != 0 {
			t.Fatalf("unexpected status %+v", status)
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()

		exec := &executorStub{failOn: "001"}
		manager := NewManager(NewScanner(), exec, testFiles(), nil)

		err := manager.RunMigrations(context.Background())
		if !errors.Is(err, ErrMigrationFailed) {
			t.Fatalf("expected ErrMigrationFailed, got %v", err)
		}
		if len(exec.executed) != 0 {
			t.Fatalf("expected nothing executed, got %v", exec.executed)
		}
	})

	t.Run("rejects gaps in the sequence", func(t *testing.T) {
		t.Parallel()

		files := fstest.MapFS{
			"001_first.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"003_third.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		err := NewManager(NewScanner(), &executorStub{}, files, nil).RunMigrations(context.Background())
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("rejects applied versions without files", func(t *testing.T) {
		t.Parallel()

		exec := &executorStub{applied: []AppliedMigration{{Version: "007"}}}
		err := NewManager(NewScanner(), exec, testFiles(), nil).RunMigrations(context.Background())
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}

func TestManager_SQLiteSchema(t *testing.T) {
	t.Parallel()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	files, err := Files(dialect.SQLite)
	if err != nil {
		t.Fatalf("Files returned error: %v", err)
	}
	manager := NewManager(NewScanner(), NewExecutor(db, dialect.SQLite), files, nil)

	for i := 0; i < 2; i++ {
		if err := manager.RunMigrations(context.Background()); err != nil {
			t.Fatalf("run %d: RunMigrations returned error: %v", i+1, err)
		}
	}

	for _, table := range []string{"users", "rooms", "room_memberships", "dbt_cards"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}

	status, err := manager.Status(context.Background())
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CurrentVersion != "001" || len(status.AppliedMigrations) != 1 {
		t.Fatalf("expected a single applied migration, got %+v", status)
	}
}
