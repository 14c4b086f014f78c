package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, validating and executing migrations.
type Manager struct {
	scanner  FileScanner
	executor Executor
	fsys     fs.FS
	root     string
	logger   *slog.Logger
}

// NewManager wires a scanner and executor against the migrations found under root in fsys.
func NewManager(scanner FileScanner, executor Executor, fsys fs.FS, root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		fsys:     fsys,
		root:     root,
		logger:   logger.With("component", "migration"),
	}
}

// Run executes all pending migrations in version order.
func (m *Manager) Run(ctx context.Context) error {
	started := time.Now()

	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return nil
	}

	for i, migration := range pending {
		m.logger.InfoContext(ctx, "applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"total", len(pending),
		)
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.Name, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied", "version", migration.Version, "duration", elapsed)
	}

	m.logger.InfoContext(ctx, "migrations completed", "count", len(pending), "duration", time.Since(started))
	return nil
}

// Pending returns migrations that have not been applied yet after validating
// the sequence and the checksums of the applied ones.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	available, applied, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, item := range applied {
		appliedByVersion[versionNumber(item.Version)] = item
	}

	var pending []Migration
	for _, migration := range available {
		item, ok := appliedByVersion[versionNumber(migration.Version)]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if item.Checksum != "" && item.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.Name, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, item.Checksum, migration.Checksum))
		}
	}
	return pending, nil
}

// Status reports the current schema version and the pending migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("get applied migrations: %w", err)
	}

	status := Status{Applied: applied, Pending: pending}
	highest := -1
	for _, item := range applied {
		if n := versionNumber(item.Version); n > highest {
			highest = n
			status.CurrentVersion = item.Version
		}
	}
	return status, nil
}

func (m *Manager) load(ctx context.Context) ([]Migration, []AppliedMigration, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, nil, fmt.Errorf("initialize version table: %w", err)
	}
	available, err := m.scanner.ScanMigrations(m.fsys, m.root)
	if err != nil {
		return nil, nil, fmt.Errorf("scan migrations: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get applied versions: %w", err)
	}
	if err := validateSequence(available, applied); err != nil {
		return nil, nil, err
	}
	return available, applied, nil
}

// validateSequence rejects gaps between the lowest and highest file versions
// and applied versions whose file is gone.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	known := make(map[int]bool, len(available))
	for _, migration := range available {
		known[versionNumber(migration.Version)] = true
	}
	if len(available) > 0 {
		first := versionNumber(available[0].Version)
		last := versionNumber(available[len(available)-1].Version)
		for version := first; version <= last; version++ {
			if !known[version] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
			}
		}
	}
	for _, item := range applied {
		if !known[versionNumber(item.Version)] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, item.Version)
		}
	}
	return nil
}

// Apply runs every pending migration under root in fsys against db.
func Apply(ctx context.Context, db *sql.DB, fsys fs.FS, root string, logger *slog.Logger) error {
	return NewManager(NewFileScanner(), NewSQLiteExecutor(db), fsys, root, logger).Run(ctx)
}
