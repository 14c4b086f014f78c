package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/logging"
)

type handlers struct {
	calendar Calendar
	location *time.Location
	logger   *slog.Logger
}

func newHandlers(calendar Calendar, opts Options) *handlers {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handlers{calendar: calendar, location: loc, logger: logger}
}

// invocation tags ctx with a logger carrying a fresh invocation id.
func (h *handlers) invocation(ctx context.Context, tool string) (context.Context, *slog.Logger) {
	logger := h.logger.With("tool", tool, "invocation_id", uuid.NewString())
	return logging.ContextWithLogger(ctx, logger), logger
}

func textResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: message}}}
}

func (h *handlers) GetAvailableRooms(ctx context.Context, _ *mcp.CallToolRequest, input WindowInput) (*mcp.CallToolResult, AvailableRoomsResult, error) {
	ctx, logger := h.invocation(ctx, "get_available_rooms")

	start, end, err := application.ParseWindow(input.Start, input.End, h.location)
	if err != nil {
		logger.InfoContext(ctx, "rejected malformed window", "error", err)
		return textResult(application.TimestampHint), AvailableRoomsResult{Rooms: []string{}, Message: application.TimestampHint}, nil
	}

	rooms, err := h.calendar.AvailableRooms(ctx, start, end)
	if err != nil {
		return nil, AvailableRoomsResult{}, fmt.Errorf("list available rooms: %w", err)
	}
	if rooms == nil {
		rooms = []string{}
	}

	message := fmt.Sprintf("[Calendar System] %s are available from %s to %s", strings.Join(rooms, ", "), input.Start, input.End)
	logger.InfoContext(ctx, message)
	return textResult(message), AvailableRoomsResult{Rooms: rooms, Message: message}, nil
}

func (h *handlers) BookMeeting(ctx context.Context, _ *mcp.CallToolRequest, input BookMeetingInput) (*mcp.CallToolResult, BookMeetingResult, error) {
	ctx, logger := h.invocation(ctx, "book_meeting")

	start, end, err := application.ParseWindow(input.Start, input.End, h.location)
	if err != nil {
		logger.InfoContext(ctx, "rejected malformed window", "error", err)
		return textResult(application.TimestampHint), BookMeetingResult{
			FailureKind: "validation",
			Message:     application.TimestampHint,
		}, nil
	}

	result, err := h.calendar.BookMeeting(ctx, application.BookMeetingParams{
		Applicant: input.Applicant,
		Attendees: SplitAttendees(input.Attendees),
		Start:     start,
		End:       end,
		RoomName:  strings.TrimSpace(input.RoomName),
		Summary:   input.Summary,
		Note:      input.Note,
	})
	if err != nil {
		return nil, BookMeetingResult{}, fmt.Errorf("book meeting: %w", err)
	}

	out := BookMeetingResult{
		Success:     result.Success,
		FailureKind: string(result.Kind),
		Message:     result.Message,
	}
	if result.Meeting != nil {
		out.MeetingID = result.Meeting.ID
	}
	for _, group := range result.Conflicts {
		for _, c := range group.Meetings {
			out.Conflicts = append(out.Conflicts, ConflictEntry{
				Participant: group.Participant,
				Role:        c.Role,
				Start:       application.FormatISO(c.Start),
				End:         application.FormatISO(c.End),
				RoomName:    c.RoomName,
			})
		}
	}

	message := RenderBooking(result)
	logger.InfoContext(ctx, message)
	return textResult(message), out, nil
}

// RenderBooking formats a booking outcome for an agent. Participant
// conflicts follow the message, grouped per person.
func RenderBooking(result application.BookingResult) string {
	if len(result.Conflicts) == 0 {
		return result.Message
	}
	var b strings.Builder
	b.WriteString(result.Message)
	b.WriteString("\n")
	for _, group := range result.Conflicts {
		fmt.Fprintf(&b, "\nConflicts for %s:\n", group.Participant)
		lines := make([]string, 0, len(group.Meetings))
		for _, c := range group.Meetings {
			room := c.RoomName
			if room == "" {
				room = "N/A"
			}
			lines = append(lines, fmt.Sprintf("   - %s to %s in %s",
				application.FormatDisplay(c.Start), application.FormatDisplay(c.End), room))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}
	return b.String()
}

func (h *handlers) CancelMeeting(ctx context.Context, _ *mcp.CallToolRequest, input CancelMeetingInput) (*mcp.CallToolResult, OutcomeResult, error) {
	ctx, logger := h.invocation(ctx, "cancel_meeting")

	start, end, err := application.ParseWindow(input.Start, input.End, h.location)
	if err != nil {
		logger.InfoContext(ctx, "rejected malformed window", "error", err)
		return textResult(application.TimestampHint), OutcomeResult{FailureKind: "validation", Message: application.TimestampHint}, nil
	}

	result, err := h.calendar.CancelMeeting(ctx, strings.TrimSpace(input.Applicant), start, end, strings.TrimSpace(input.RoomName))
	if err != nil {
		return nil, OutcomeResult{}, fmt.Errorf("cancel meeting: %w", err)
	}

	logger.InfoContext(ctx, result.Message)
	return textResult(result.Message), outcome(result), nil
}

func (h *handlers) AttendMeeting(ctx context.Context, _ *mcp.CallToolRequest, input AttendMeetingInput) (*mcp.CallToolResult, OutcomeResult, error) {
	ctx, logger := h.invocation(ctx, "attend_meeting")

	start, end, err := application.ParseWindow(input.Start, input.End, h.location)
	if err != nil {
		logger.InfoContext(ctx, "rejected malformed window", "error", err)
		return textResult(application.TimestampHint), OutcomeResult{FailureKind: "validation", Message: application.TimestampHint}, nil
	}

	result := h.calendar.AttendMeeting(ctx, strings.TrimSpace(input.AgentName), strings.TrimSpace(input.RoomName), start, end)
	out := outcome(result.OperationResult)
	out.Now = application.FormatISO(h.calendar.Now(ctx))

	logger.InfoContext(ctx, result.Message)
	return textResult(result.Message), out, nil
}

func (h *handlers) JumpTime(ctx context.Context, _ *mcp.CallToolRequest, input JumpTimeInput) (*mcp.CallToolResult, OutcomeResult, error) {
	ctx, logger := h.invocation(ctx, "jump_time")

	result := h.calendar.JumpTime(ctx, input.Minutes)
	out := outcome(result.OperationResult)
	out.Now = application.FormatISO(result.Now)

	logger.InfoContext(ctx, result.Message)
	return textResult(result.Message), out, nil
}

func (h *handlers) GetCurrentTime(ctx context.Context, _ *mcp.CallToolRequest, _ CurrentTimeInput) (*mcp.CallToolResult, CurrentTimeResult, error) {
	now := application.FormatISO(h.calendar.Now(ctx))
	return textResult("Current time: " + now), CurrentTimeResult{Now: now}, nil
}

func (h *handlers) ListMeetings(ctx context.Context, _ *mcp.CallToolRequest, _ ListMeetingsInput) (*mcp.CallToolResult, ListMeetingsResult, error) {
	ctx, _ = h.invocation(ctx, "list_meetings")

	meetings, err := h.calendar.ListMeetings(ctx)
	if err != nil {
		return nil, ListMeetingsResult{}, fmt.Errorf("list meetings: %w", err)
	}

	out := ListMeetingsResult{Meetings: make([]MeetingEntry, 0, len(meetings))}
	lines := make([]string, 0, len(meetings))
	for _, m := range meetings {
		entry := MeetingEntry{
			ID:              m.ID,
			Start:           application.FormatISO(m.Start),
			End:             application.FormatISO(m.End),
			Applicant:       m.Applicant,
			Attendees:       append([]string{}, m.Attendees...),
			RoomName:        m.RoomName,
			Summary:         m.Summary,
			ActualAttendees: m.ActualAttendees,
		}
		if len(m.AttendTime) > 0 {
			entry.AttendTime = make(map[string]string, len(m.AttendTime))
			for who, at := range m.AttendTime {
				entry.AttendTime[who] = application.FormatISO(at)
			}
		}
		out.Meetings = append(out.Meetings, entry)
		lines = append(lines, fmt.Sprintf("%s to %s in %s, applicant %s, attendees: %s",
			entry.Start, entry.End, m.RoomName, m.Applicant, strings.Join(m.Attendees, ", ")))
	}

	message := "No meetings booked."
	if len(lines) > 0 {
		message = strings.Join(lines, "\n")
	}
	return textResult(message), out, nil
}

func outcome(result application.OperationResult) OutcomeResult {
	return OutcomeResult{
		Success:     result.Success,
		FailureKind: string(result.Kind),
		Message:     result.Message,
	}
}

// SplitAttendees splits a comma-separated attendee list, trimming blanks.
func SplitAttendees(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
