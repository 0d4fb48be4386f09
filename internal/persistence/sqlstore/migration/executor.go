package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/counseling-diary/internal/persistence/sqlstore/dialect"
)

// SQLExecutor applies migrations through database/sql.
type SQLExecutor struct {
	db      *sql.DB
	dialect dialect.Dialect
}

// NewExecutor returns an executor for db speaking the given dialect.
func NewExecutor(db *sql.DB, d dialect.Dialect) *SQLExecutor {
	return &SQLExecutor{db: db, dialect: d}
}

// ExecuteMigration runs every statement of the migration in one transaction.
func (e *SQLExecutor) ExecuteMigration(ctx context.Context, migration Migration) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return newMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile))
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return newDatabaseError(migration.Version, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range statements {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = newDatabaseError(migration.Version, fmt.Sprintf("execute statement %d", i+1), execErr)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = newDatabaseError(migration.Version, "commit transaction", err)
		return err
	}
	return nil
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms BIGINT NOT NULL DEFAULT 0
		)`
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return newDatabaseError("", "create schema_migrations table", err)
	}
	return nil
}

// RecordMigration stores a successfully applied migration.
func (e *SQLExecutor) RecordMigration(ctx context.Context, migration Migration, executionTime time.Duration) error {
	query := e.dialect.Rebind(`
		INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms)
		VALUES (?, ?, ?, ?)`)
	_, err := e.db.ExecContext(ctx, query,
		migration.Version,
		time.Now().UTC().Format(time.RFC3339),
		migration.Checksum,
		executionTime.Milliseconds(),
	)
	if err != nil {
		return newDatabaseError(migration.Version, "record migration", err)
	}
	return nil
}

// GetAppliedVersions lists applied migrations in version order.
func (e *SQLExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT version, applied_at, execution_time_ms, checksum
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, newDatabaseError("", "query applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			row         AppliedMigration
			appliedAt   string
			executionMS int64
		)
		if err := rows.Scan(&row.Version, &appliedAt, &executionMS, &row.Checksum); err != nil {
			return nil, newDatabaseError("", "scan applied migration", err)
		}
		if row.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, newDatabaseError(row.Version, "parse applied_at",
				fmt.Errorf("%w: %v", ErrVersionTableCorrupt, err))
		}
		row.ExecutionTime = time.Duration(executionMS) * time.Millisecond
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newDatabaseError("", "iterate applied migrations", err)
	}
	return applied, nil
}
