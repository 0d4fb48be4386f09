package migration

import (
	"context"
	"io/fs"
	"time"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version     string // numeric, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion    string
	PendingCount      int
	AppliedMigrations []AppliedMigration
	PendingMigrations []Migration
}

// Scanner discovers migration files.
type Scanner interface {
	ScanMigrations(fsys fs.FS) ([]Migration, error)
	ValidateFileName(filename string) error
}

// Executor applies migrations and maintains the version table.
type Executor interface {
	ExecuteMigration(ctx context.Context, migration Migration) error
	InitializeVersionTable(ctx context.Context) error
	RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
