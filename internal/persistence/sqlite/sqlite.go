// Package sqlite stores calendar meetings in a SQLite database through the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/persistence/sqlite/migration"
	"github.com/example/meeting-calendar/internal/persistence/sqlite/migrations"
)

// Storage bundles the connection pool with the meeting repository.
type Storage struct {
	*MeetingRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Options configures Open.
type Options struct {
	Location *time.Location
	Logger   *slog.Logger
	Retry    *RetryConfig
}

// Open opens the database at path. Use migration.MemoryPath for a private
// in-memory database. Callers run Migrate before first use.
func Open(path string, opts Options) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	pool, err := NewConnectionPool(migration.DefaultSQLiteConfig(path))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	repoOpts := []RepositoryOption{WithLocation(opts.Location), WithLogger(logger)}
	if opts.Retry != nil {
		repoOpts = append(repoOpts, WithRetryConfig(*opts.Retry))
	}

	return &Storage{
		MeetingRepository: NewMeetingRepository(pool, repoOpts...),
		pool:              pool,
		logger:            logger,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	if err := migration.Apply(ctx, s.pool.DB(), migrations.FS, ".", s.logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// SchemaStatus reports the applied and pending embedded migrations.
func (s *Storage) SchemaStatus(ctx context.Context) (migration.Status, error) {
	manager := migration.NewManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(s.pool.DB()), migrations.FS, ".", s.logger)
	return manager.Status(ctx)
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}
