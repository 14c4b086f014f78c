package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated calendar database in the test's temp
// directory. It is closed automatically when the test finishes.
type SQLiteHarness struct {
	Path     string
	Storage  *sqlite.Storage
	Meetings persistence.MeetingRepository
}

// NewSQLiteHarness opens and migrates a fresh database, then stores seed in
// order. Any failure aborts the test.
func NewSQLiteHarness(tb testing.TB, seed ...MeetingFixture) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "calendar.db")
	storage, err := sqlite.Open(path, sqlite.Options{})
	if err != nil {
		tb.Fatalf("open calendar database: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	ctx := context.Background()
	if err := storage.Migrate(ctx); err != nil {
		tb.Fatalf("migrate calendar database: %v", err)
	}
	for _, fixture := range seed {
		if _, err := storage.CreateMeeting(ctx, fixture.Record()); err != nil {
			tb.Fatalf("seed meeting %s in %s: %v", fixture.Start, fixture.RoomName, err)
		}
	}

	return &SQLiteHarness{Path: path, Storage: storage, Meetings: storage}
}

// Close releases the database early. Calling it more than once is harmless.
func (h *SQLiteHarness) Close() {
	if h != nil && h.Storage != nil {
		_ = h.Storage.Close()
	}
}
