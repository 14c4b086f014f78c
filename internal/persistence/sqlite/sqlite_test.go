package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-calendar/internal/persistence"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	storage, err := Open(filepath.Join(dir, "calendar.db"), Options{})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.January, 15, hour, minute, 0, 0, time.UTC)
}

func sampleMeeting(room string, start, end time.Time) persistence.Meeting {
	return persistence.Meeting{
		Start:     start,
		End:       end,
		Applicant: "Alice",
		Attendees: []string{"Bob", "Carol"},
		RoomName:  room,
		Summary:   "Quarterly planning",
		Note:      "bring numbers",
	}
}

func TestMeetingRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	created, err := storage.CreateMeeting(ctx, sampleMeeting("Room_01", at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}

	fetched, err := storage.GetMeeting(ctx, created.Key())
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if fetched.ID != created.ID || fetched.Applicant != "Alice" || fetched.Summary != "Quarterly planning" || fetched.Note != "bring numbers" {
		t.Fatalf("unexpected meeting: %#v", fetched)
	}
	if !slices.Equal(fetched.Attendees, []string{"Bob", "Carol"}) {
		t.Fatalf("unexpected attendees: %v", fetched.Attendees)
	}
	if !fetched.Start.Equal(at(10, 0)) || !fetched.End.Equal(at(11, 0)) {
		t.Fatalf("unexpected window: %v - %v", fetched.Start, fetched.End)
	}
	if len(fetched.ActualAttendees) != 0 || len(fetched.AttendTime) != 0 {
		t.Fatalf("new meeting should have no attendance: %#v", fetched)
	}

	var raw string
	if err := storage.pool.DB().QueryRow(`SELECT start_time FROM meetings WHERE id = ?`, created.ID).Scan(&raw); err != nil {
		t.Fatalf("read raw start_time: %v", err)
	}
	if raw != "2024-01-15T10:00:00" {
		t.Fatalf("expected ISO start_time, got %q", raw)
	}
}

func TestMeetingRepository_GetMissing(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetMeeting(context.Background(), persistence.MeetingKey{RoomName: "Room_01", Start: at(9, 0), End: at(10, 0)})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMeetingRepository_UniqueNaturalKey(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	if _, err := storage.CreateMeeting(ctx, sampleMeeting("Room_01", at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	duplicate := sampleMeeting("Room_01", at(10, 0), at(11, 0))
	duplicate.Applicant = "Dave"
	if _, err := storage.CreateMeeting(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := storage.CreateMeeting(ctx, sampleMeeting("Room_02", at(10, 0), at(11, 0))); err != nil {
		t.Fatalf("same window in another room should be accepted: %v", err)
	}
}

func TestMeetingRepository_ConcurrentInsertsOfSameKey(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	var created, duplicates atomic.Int32
	var group errgroup.Group
	for i := 0; i < 8; i++ {
		group.Go(func() error {
			_, err := storage.CreateMeeting(ctx, sampleMeeting("Room_03", at(14, 0), at(15, 0)))
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, persistence.ErrDuplicate):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Load() != 1 || duplicates.Load() != 7 {
		t.Fatalf("expected 1 insert and 7 duplicates, got %d and %d", created.Load(), duplicates.Load())
	}
}

func TestMeetingRepository_ListMeetings(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	fixtures := []persistence.Meeting{
		sampleMeeting("Room_02", at(13, 0), at(14, 0)),
		sampleMeeting("Room_01", at(9, 0), at(10, 0)),
		sampleMeeting("Room_01", at(10, 0), at(11, 0)),
	}
	fixtures[1].Applicant = "Dave"
	fixtures[1].Attendees = []string{"Eve"}
	for _, meeting := range fixtures {
		if _, err := storage.CreateMeeting(ctx, meeting); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
	}

	t.Run("all ordered by start", func(t *testing.T) {
		meetings, err := storage.ListMeetings(ctx, persistence.MeetingFilter{})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(meetings) != 3 || !meetings[0].Start.Equal(at(9, 0)) || !meetings[2].Start.Equal(at(13, 0)) {
			t.Fatalf("unexpected order: %#v", meetings)
		}
	})

	t.Run("overlap excludes back-to-back", func(t *testing.T) {
		start, end := at(10, 0), at(13, 0)
		meetings, err := storage.ListMeetings(ctx, persistence.MeetingFilter{OverlapStart: &start, OverlapEnd: &end})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(meetings) != 1 || !meetings[0].Start.Equal(at(10, 0)) {
			t.Fatalf("expected only the 10:00 meeting, got %#v", meetings)
		}
	})

	t.Run("participant and room", func(t *testing.T) {
		meetings, err := storage.ListMeetings(ctx, persistence.MeetingFilter{Participant: "Eve"})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(meetings) != 1 || meetings[0].Applicant != "Dave" {
			t.Fatalf("expected Dave's meeting, got %#v", meetings)
		}

		meetings, err = storage.ListMeetings(ctx, persistence.MeetingFilter{RoomName: "Room_02"})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(meetings) != 1 {
			t.Fatalf("expected one meeting in Room_02, got %d", len(meetings))
		}
	})

	t.Run("starts after", func(t *testing.T) {
		after := at(10, 0)
		meetings, err := storage.ListMeetings(ctx, persistence.MeetingFilter{StartsAfter: &after})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(meetings) != 1 || !meetings[0].Start.Equal(at(13, 0)) {
			t.Fatalf("expected only the 13:00 meeting, got %#v", meetings)
		}
	})
}

func TestMeetingRepository_DeleteMeeting(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	meeting, err := storage.CreateMeeting(ctx, sampleMeeting("Room_01", at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	if err := storage.DeleteMeeting(ctx, "Bob", meeting.Key()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("non-applicant delete: expected ErrNotFound, got %v", err)
	}
	wrongEnd := meeting.Key()
	wrongEnd.End = at(12, 0)
	if err := storage.DeleteMeeting(ctx, "Alice", wrongEnd); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("mismatched end: expected ErrNotFound, got %v", err)
	}

	if err := storage.DeleteMeeting(ctx, "Alice", meeting.Key()); err != nil {
		t.Fatalf("DeleteMeeting failed: %v", err)
	}
	if err := storage.DeleteMeeting(ctx, "Alice", meeting.Key()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMeetingRepository_RecordAttendance(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	meeting, err := storage.CreateMeeting(ctx, sampleMeeting("Room_01", at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}

	first := at(9, 55)
	if _, err := storage.RecordAttendance(ctx, meeting.Key(), "Carol", first); err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if _, err := storage.RecordAttendance(ctx, meeting.Key(), "Bob", at(9, 58)); err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	second := at(10, 5).Add(250 * time.Millisecond)
	updated, err := storage.RecordAttendance(ctx, meeting.Key(), "Carol", second)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}

	if !slices.Equal(updated.ActualAttendees, []string{"Bob", "Carol"}) {
		t.Fatalf("expected sorted unique attendees, got %v", updated.ActualAttendees)
	}
	if !updated.AttendTime["Carol"].Equal(second) {
		t.Fatalf("expected last write to win, got %v", updated.AttendTime["Carol"])
	}

	var actual, attendTime string
	err = storage.pool.DB().QueryRow(`SELECT actual_attendees, attend_time FROM meetings WHERE id = ?`, meeting.ID).Scan(&actual, &attendTime)
	if err != nil {
		t.Fatalf("read raw attendance: %v", err)
	}
	if actual != "Bob, Carol" {
		t.Fatalf("unexpected actual_attendees column: %q", actual)
	}
	if attendTime != `{"Bob":"2024-01-15T09:58:00","Carol":"2024-01-15T10:05:00.250000"}` {
		t.Fatalf("unexpected attend_time column: %s", attendTime)
	}
}

func TestMeetingRepository_RecordAttendance_Missing(t *testing.T) {
	storage := newTestStorage(t)

	key := persistence.MeetingKey{RoomName: "Room_01", Start: at(10, 0), End: at(11, 0)}
	if _, err := storage.RecordAttendance(context.Background(), key, "Bob", at(10, 0)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMeetingRepository_RecordAttendance_CorruptAttendTime(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	meeting, err := storage.CreateMeeting(ctx, sampleMeeting("Room_01", at(10, 0), at(11, 0)))
	if err != nil {
		t.Fatalf("CreateMeeting failed: %v", err)
	}
	if _, err := storage.pool.DB().Exec(`UPDATE meetings SET attend_time = 'not json' WHERE id = ?`, meeting.ID); err != nil {
		t.Fatalf("corrupt attend_time: %v", err)
	}

	updated, err := storage.RecordAttendance(ctx, meeting.Key(), "Bob", at(10, 1))
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if len(updated.AttendTime) != 1 || !updated.AttendTime["Bob"].Equal(at(10, 1)) {
		t.Fatalf("expected a fresh attend_time map, got %v", updated.AttendTime)
	}
}

func TestFormatISO(t *testing.T) {
	if got := FormatISO(at(10, 0)); got != "2024-01-15T10:00:00" {
		t.Errorf("whole seconds: got %s", got)
	}
	if got := FormatISO(at(10, 0).Add(1500 * time.Microsecond)); got != "2024-01-15T10:00:00.001500" {
		t.Errorf("fractional seconds: got %s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Bob ,Carol,, Dave")
	if !slices.Equal(got, []string{"Bob", "Carol", "Dave"}) {
		t.Fatalf("unexpected split: %v", got)
	}
	if SplitList("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
