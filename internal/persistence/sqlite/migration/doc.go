// Package migration applies versioned SQL schema changes to the calendar
// SQLite database.
//
// Migration files live in an fs.FS (normally embedded into the binary) and
// follow the naming convention {version}_{description}.sql, for example
// "001_create_meetings.sql". Each file runs inside its own transaction and is
// recorded in a schema_migrations table together with a BLAKE2b checksum of
// its contents, so a file that was edited after being applied is reported
// instead of silently ignored.
//
// Example usage:
//
//	manager := NewManager(NewFileScanner(), NewSQLiteExecutor(db), migrations.FS, ".", logger)
//	if err := manager.Run(ctx); err != nil {
//		return fmt.Errorf("run migrations: %w", err)
//	}
package migration
