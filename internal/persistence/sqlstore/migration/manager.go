package migration

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Manager orchestrates scanning, ordering and applying migrations.
type Manager struct {
	scanner  Scanner
	executor Executor
	files    fs.FS
	logger   *zap.Logger
}

// NewManager wires a Manager. files must contain the migration files at its root.
func NewManager(scanner Scanner, executor Executor, files fs.FS, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		files:    files,
		logger:   logger.With(zap.String("component", "migration")),
	}
}

// RunMigrations applies every pending migration in version order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.Error("failed to initialize schema_migrations", zap.Error(err))
		return fmt.Errorf("initialize version table: %w", err)
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		m.logger.Error("failed to resolve pending migrations", zap.Error(err))
		return err
	}
	if len(pending) == 0 {
		m.logger.Info("database schema up to date")
		return nil
	}

	for i, migration := range pending {
		logger := m.logger.With(
			zap.String("version", migration.Version),
			zap.String("description", migration.Description),
			zap.Int("position", i+1),
			zap.Int("total", len(pending)),
		)
		logger.Info("applying migration")

		migrationStarted := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.Error("migration failed", zap.Error(err))
			return newMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStarted)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.Error("failed to record migration", zap.Error(err))
			return newMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}
		logger.Info("migration applied", zap.Duration("duration", elapsed))
	}

	m.logger.Info("migrations completed",
		zap.Int("applied", len(pending)),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

// PendingMigrations returns migrations present in files but not yet applied.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.files)
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get applied versions: %w", err)
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		v, _ := strconv.Atoi(row.Version)
		done[v] = true
	}

	var pending []Migration
	for _, migration := range available {
		v, _ := strconv.Atoi(migration.Version)
		if !done[v] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status reports the applied and pending migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("get applied versions: %w", err)
	}
	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, row := range applied {
		if v, err := strconv.Atoi(row.Version); err == nil && v > highest {
			highest = v
			status.CurrentVersion = row.Version
		}
	}
	return status, nil
}

// validateSequence rejects gaps between available versions and applied
// versions that no longer have a file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	for i, migration := range available {
		v, err := strconv.Atoi(migration.Version)
		if err != nil {
			return fmt.Errorf("%w: version %q is not numeric", ErrInvalidMigrationFile, migration.Version)
		}
		if i > 0 {
			prev, _ := strconv.Atoi(available[i-1].Version)
			if v != prev+1 {
				return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, prev+1)
			}
		}
		present[v] = true
	}

	for _, row := range applied {
		v, err := strconv.Atoi(row.Version)
		if err != nil {
			return fmt.Errorf("%w: applied version %q is not numeric", ErrVersionTableCorrupt, row.Version)
		}
		if !present[v] {
			return fmt.Errorf("%w: applied migration %03d has no file", ErrVersionConflict, v)
		}
	}
	return nil
}
