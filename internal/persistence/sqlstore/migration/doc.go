// Package migration applies versioned schema changes to the SQL store.
//
// Migration files are embedded per dialect under sql/<dialect>/ and follow the
// naming convention {version}_{description}.sql (e.g. "001_initial_schema.sql").
// Each file runs in its own transaction and is recorded in the
// schema_migrations table so it is never applied twice.
//
//	manager := migration.NewManager(migration.NewScanner(), migration.NewExecutor(db, dialect.SQLite), files, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
