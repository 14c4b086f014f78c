package persistence_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/testfixtures"
)

func newPersistenceMeeting(opts ...testfixtures.MeetingOption) persistence.Meeting {
	return testfixtures.NewMeetingFixture(opts...).Record()
}

func TestMeetingRepository(t *testing.T) {
	t.Parallel()

	t.Run("creates, reads, and deletes meetings", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)
		defer harness.Close()

		meeting := newPersistenceMeeting(
			testfixtures.WithApplicant("Alice"),
			testfixtures.WithAttendees("Bob", "Carol"),
			testfixtures.WithSummary("Roadmap review"),
		)

		created, err := harness.Meetings.CreateMeeting(ctx, meeting)
		if err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		if created.ID == 0 {
			t.Fatalf("expected generated id")
		}

		fetched, err := harness.Meetings.GetMeeting(ctx, meeting.Key())
		if err != nil {
			t.Fatalf("GetMeeting failed: %v", err)
		}
		if fetched.Applicant != "Alice" || !slices.Equal(fetched.Attendees, []string{"Bob", "Carol"}) || fetched.Summary != "Roadmap review" {
			t.Fatalf("unexpected meeting %+v", fetched)
		}

		if err := harness.Meetings.DeleteMeeting(ctx, "Bob", meeting.Key()); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound for non-applicant delete, got %v", err)
		}
		if err := harness.Meetings.DeleteMeeting(ctx, "Alice", meeting.Key()); err != nil {
			t.Fatalf("DeleteMeeting failed: %v", err)
		}
		if _, err := harness.Meetings.GetMeeting(ctx, meeting.Key()); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("rejects duplicate natural keys", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		first := newPersistenceMeeting(testfixtures.WithApplicant("Alice"))
		if _, err := harness.Meetings.CreateMeeting(ctx, first); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		second := newPersistenceMeeting(testfixtures.WithApplicant("Dave"))
		if _, err := harness.Meetings.CreateMeeting(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("filters by participant and start", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t,
			testfixtures.NewMeetingFixture(testfixtures.WithApplicant("Alice"), testfixtures.WithAttendees("Bob"),
				testfixtures.WithWindow(testfixtures.At(10, 0), testfixtures.At(11, 0))),
			testfixtures.NewMeetingFixture(testfixtures.WithApplicant("Carol"), testfixtures.WithAttendees("Bob"),
				testfixtures.WithRoom("Room_02"), testfixtures.WithWindow(testfixtures.At(13, 0), testfixtures.At(14, 0))),
			testfixtures.NewMeetingFixture(testfixtures.WithApplicant("Bobby"),
				testfixtures.WithRoom("Room_03"), testfixtures.WithWindow(testfixtures.At(15, 0), testfixtures.At(16, 0))),
		)

		after := testfixtures.At(10, 0)
		got, err := harness.Meetings.ListMeetings(ctx, persistence.MeetingFilter{Participant: "Bob", StartsAfter: &after})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(got) != 1 || got[0].RoomName != "Room_02" {
			t.Fatalf("expected only the afternoon meeting for Bob, got %+v", got)
		}
	})

	t.Run("records attendance", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		harness := testfixtures.NewSQLiteHarness(t)

		meeting := newPersistenceMeeting(testfixtures.WithApplicant("Alice"), testfixtures.WithAttendees("Bob"))
		if _, err := harness.Meetings.CreateMeeting(ctx, meeting); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}

		checkIn := testfixtures.At(9, 57)
		updated, err := harness.Meetings.RecordAttendance(ctx, meeting.Key(), "Bob", checkIn)
		if err != nil {
			t.Fatalf("RecordAttendance failed: %v", err)
		}
		if !slices.Equal(updated.ActualAttendees, []string{"Bob"}) || !updated.AttendTime["Bob"].Equal(checkIn) {
			t.Fatalf("unexpected attendance %+v", updated)
		}
	})
}
