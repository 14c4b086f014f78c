package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/persistence/sqlite/migration"
)

// errBusy marks SQLITE_BUSY and SQLITE_LOCKED failures, which are retried.
var errBusy = errors.New("sqlite: database is busy")

// ConnectionPool owns the *sql.DB for one calendar database.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool opens the database described by config.
func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.Open(config)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Path, err)
	}
	return &ConnectionPool{db: db}, nil
}

func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

func (cp *ConnectionPool) Close() error {
	if cp == nil || cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, committing when fn returns
// nil and rolling back on error or panic.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// ErrorMapper translates driver errors into persistence sentinels. The
// driver error stays in the chain for logging.
type ErrorMapper struct{}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError returns persistence.ErrNotFound for missing rows, wraps
// persistence.ErrDuplicate around the meetings natural key violation and
// marks busy or locked databases as retryable.
func (em *ErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	code := sqliteErr.Code()
	switch {
	case code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %w", persistence.ErrDuplicate, err)
	case code&0xff == sqlite3lib.SQLITE_BUSY, code&0xff == sqlite3lib.SQLITE_LOCKED:
		return fmt.Errorf("%w: %w", errBusy, err)
	}
	return err
}

// RetryConfig bounds the exponential backoff used while the database is busy.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// delay returns the pause before retry number attempt, starting at 1.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.BackoffFactor)
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	return min(d, c.MaxDelay)
}

// RetryHelper reruns storage calls that failed because SQLite was busy.
type RetryHelper struct {
	config RetryConfig
	mapper *ErrorMapper
}

func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config, mapper: NewErrorMapper()}
}

// WithRetry runs fn until it succeeds, fails with a non-busy error, or the
// retry budget is spent. The returned error is already mapped.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rh.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(rh.config.delay(attempt)):
			}
		}

		lastErr = rh.mapper.MapError(fn())
		if lastErr == nil || !errors.Is(lastErr, errBusy) {
			return lastErr
		}
	}
	return fmt.Errorf("database still busy after %d retries: %w", rh.config.MaxRetries, lastErr)
}
