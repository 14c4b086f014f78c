package tools

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/clock"
	"github.com/example/meeting-calendar/internal/persistence/sqlite"
	"github.com/example/meeting-calendar/internal/scheduler"
)

func day(hour, minute int) time.Time {
	return time.Date(2025, 10, 20, hour, minute, 0, 0, time.UTC)
}

type harness struct {
	session *mcp.ClientSession
	clock   *clock.Virtual
	service *application.MeetingService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	store, err := sqlite.Open(":memory:", sqlite.Options{})
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewVirtual(day(9, 0))
	svc := application.NewMeetingService(store, clk, scheduler.DefaultPolicy())
	server := NewServer(svc, Options{})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("connect server: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("connect client: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	return &harness{session: session, clock: clk, service: svc}
}

func (h *harness) call(t *testing.T, name string, args map[string]any) string {
	t.Helper()
	result, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	if result.IsError {
		t.Fatalf("call %s returned tool error: %+v", name, result.Content)
	}
	if len(result.Content) == 0 {
		t.Fatalf("call %s returned no content", name)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("call %s returned %T", name, result.Content[0])
	}
	return text.Text
}

func TestServer_ListsTools(t *testing.T) {
	h := newHarness(t)

	result, err := h.session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	slices.Sort(names)
	want := []string{"attend_meeting", "book_meeting", "cancel_meeting", "get_available_rooms", "get_current_time", "jump_time", "list_meetings"}
	if !slices.Equal(names, want) {
		t.Fatalf("expected tools %v, got %v", want, names)
	}
}

func TestServer_MeetingLifecycle(t *testing.T) {
	h := newHarness(t)

	text := h.call(t, "get_available_rooms", map[string]any{"start": "2025-10-20T10:00:00", "end": "2025-10-20T11:00:00"})
	if !strings.HasPrefix(text, "[Calendar System] Room_01, Room_02") || !strings.HasSuffix(text, "are available from 2025-10-20T10:00:00 to 2025-10-20T11:00:00") {
		t.Fatalf("unexpected availability text %q", text)
	}

	text = h.call(t, "book_meeting", map[string]any{
		"applicant": "Alice",
		"attendees": "Bob, Carol",
		"room_name": "Room_01",
		"start":     "2025-10-20T10:00:00",
		"end":       "2025-10-20T11:00:00",
	})
	if text != "Meeting successfully booked in Room_01 from 2025-10-20 10:00:00 to 2025-10-20 11:00:00" {
		t.Fatalf("unexpected booking text %q", text)
	}

	text = h.call(t, "book_meeting", map[string]any{
		"applicant": "Bob",
		"attendees": "",
		"room_name": "Room_02",
		"start":     "2025-10-20T10:30:00",
		"end":       "2025-10-20T11:30:00",
	})
	want := "Meeting Booking Failed: Scheduling conflicts detected\n\nConflicts for Bob:\n   - 2025-10-20 10:00:00 to 2025-10-20 11:00:00 in Room_01"
	if text != want {
		t.Fatalf("unexpected conflict text %q", text)
	}

	text = h.call(t, "jump_time", map[string]any{"minutes": 55})
	if text != "Successfully jumped time for 55 minutes." {
		t.Fatalf("unexpected jump text %q", text)
	}

	text = h.call(t, "attend_meeting", map[string]any{
		"agent_name": "Bob",
		"room_name":  "Room_01",
		"start":      "2025-10-20T10:00:00",
		"end":        "2025-10-20T11:00:00",
	})
	if text != "Bob successfully attended the meeting in Room_01 from 2025-10-20T09:55:00 to 2025-10-20T11:00:00." {
		t.Fatalf("unexpected attend text %q", text)
	}

	if text = h.call(t, "get_current_time", map[string]any{}); text != "Current time: 2025-10-20T11:00:00" {
		t.Fatalf("unexpected time text %q", text)
	}

	text = h.call(t, "list_meetings", map[string]any{})
	if !strings.Contains(text, "2025-10-20T10:00:00 to 2025-10-20T11:00:00 in Room_01, applicant Alice") {
		t.Fatalf("unexpected listing %q", text)
	}

	text = h.call(t, "cancel_meeting", map[string]any{
		"applicant": "Alice",
		"start":     "2025-10-20T10:00:00",
		"end":       "2025-10-20T11:00:00",
		"room_name": "Room_01",
	})
	if text != "Meeting cancelled successfully for Room_01 at 2025-10-20 10:00:00" {
		t.Fatalf("unexpected cancel text %q", text)
	}
	if text = h.call(t, "list_meetings", map[string]any{}); text != "No meetings booked." {
		t.Fatalf("expected empty calendar, got %q", text)
	}
}

func TestServer_RejectsMalformedTimestamps(t *testing.T) {
	h := newHarness(t)

	calls := map[string]map[string]any{
		"get_available_rooms": {"start": "tomorrow", "end": "2025-10-20T11:00:00"},
		"book_meeting":        {"applicant": "Alice", "attendees": "", "room_name": "Room_01", "start": "tomorrow", "end": "2025-10-20T11:00:00"},
		"cancel_meeting":      {"applicant": "Alice", "room_name": "Room_01", "start": "2025-10-20T10:00:00", "end": "noon"},
		"attend_meeting":      {"agent_name": "Alice", "room_name": "Room_01", "start": "tomorrow", "end": "noon"},
	}
	for name, args := range calls {
		t.Run(name, func(t *testing.T) {
			if text := h.call(t, name, args); text != application.TimestampHint {
				t.Fatalf("unexpected text %q", text)
			}
		})
	}
	if !h.clock.Now().Equal(day(9, 0)) {
		t.Fatalf("clock moved on rejected calls")
	}
}

type failingCalendar struct {
	Calendar
}

func (failingCalendar) ListMeetings(context.Context) ([]application.Meeting, error) {
	return nil, errors.New("disk unavailable")
}

func TestHandlers_StorageErrorsSurface(t *testing.T) {
	h := newHandlers(failingCalendar{}, Options{})
	_, _, err := h.ListMeetings(context.Background(), nil, ListMeetingsInput{})
	if err == nil || !strings.Contains(err.Error(), "disk unavailable") {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestRenderBooking(t *testing.T) {
	result := application.BookingResult{
		OperationResult: application.OperationResult{Kind: application.FailureParticipantConflict, Message: "Meeting Booking Failed: Scheduling conflicts detected"},
		Conflicts: []application.ParticipantConflicts{
			{Participant: "Alice", Meetings: []application.ConflictingMeeting{
				{Start: day(10, 0), End: day(11, 0), RoomName: "Room_01"},
				{Start: day(11, 0), End: day(12, 0)},
			}},
			{Participant: "Bob", Meetings: []application.ConflictingMeeting{
				{Start: day(10, 0), End: day(11, 0), RoomName: "Room_01"},
			}},
		},
	}

	want := "Meeting Booking Failed: Scheduling conflicts detected\n" +
		"\nConflicts for Alice:\n" +
		"   - 2025-10-20 10:00:00 to 2025-10-20 11:00:00 in Room_01\n" +
		"   - 2025-10-20 11:00:00 to 2025-10-20 12:00:00 in N/A" +
		"\nConflicts for Bob:\n" +
		"   - 2025-10-20 10:00:00 to 2025-10-20 11:00:00 in Room_01"
	if got := RenderBooking(result); got != want {
		t.Fatalf("unexpected rendering:\n%s", got)
	}

	plain := application.BookingResult{OperationResult: application.OperationResult{Message: "ok"}}
	if got := RenderBooking(plain); got != "ok" {
		t.Fatalf("expected bare message, got %q", got)
	}
}

func TestSplitAttendees(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "Jeff Young,Brian Lewis", want: []string{"Jeff Young", "Brian Lewis"}},
		{in: " Jeff Young , , Brian Lewis ,", want: []string{"Jeff Young", "Brian Lewis"}},
	}
	for _, tt := range tests {
		if got := SplitAttendees(tt.in); !slices.Equal(got, tt.want) {
			t.Fatalf("SplitAttendees(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
