// Package tools exposes the meeting calendar to agents as MCP tools.
//
// Every tool answers with a human-readable message as text content and the
// same outcome as structured output. Expected failures, such as a taken room
// or an unknown meeting, are ordinary results. Only storage faults surface as
// tool errors.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/example/meeting-calendar/internal/application"
)

const (
	// ServerName identifies the MCP server implementation.
	ServerName = "meeting-calendar"
	// ServerVersion identifies the MCP server version.
	ServerVersion = "0.1.0"
)

// Calendar is the subset of the meeting service the tools drive.
type Calendar interface {
	AvailableRooms(ctx context.Context, start, end time.Time) ([]string, error)
	BookMeeting(ctx context.Context, params application.BookMeetingParams) (application.BookingResult, error)
	CancelMeeting(ctx context.Context, applicant string, start, end time.Time, room string) (application.OperationResult, error)
	AttendMeeting(ctx context.Context, identity, room string, start, end time.Time) application.AttendResult
	JumpTime(ctx context.Context, minutes float64) application.JumpResult
	ListMeetings(ctx context.Context) ([]application.Meeting, error)
	Now(ctx context.Context) time.Time
}

// Options tunes tool behaviour.
type Options struct {
	// Location interprets timestamps that carry no offset. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// NewServer builds an MCP server with every calendar tool registered.
func NewServer(calendar Calendar, opts Options) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion}, nil)
	Register(server, calendar, opts)
	return server
}

// Register adds the calendar tools to server.
func Register(server *mcp.Server, calendar Calendar, opts Options) {
	h := newHandlers(calendar, opts)
	mcp.AddTool(server, GetAvailableRoomsTool(), h.GetAvailableRooms)
	mcp.AddTool(server, BookMeetingTool(), h.BookMeeting)
	mcp.AddTool(server, CancelMeetingTool(), h.CancelMeeting)
	mcp.AddTool(server, AttendMeetingTool(), h.AttendMeeting)
	mcp.AddTool(server, JumpTimeTool(), h.JumpTime)
	mcp.AddTool(server, GetCurrentTimeTool(), h.GetCurrentTime)
	mcp.AddTool(server, ListMeetingsTool(), h.ListMeetings)
}

// GetAvailableRoomsTool defines the room availability tool.
func GetAvailableRoomsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_available_rooms",
		Description: "List available rooms within the given time window.",
	}
}

// BookMeetingTool defines the booking tool.
func BookMeetingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "book_meeting",
		Description: "Book a meeting into the calendar.",
	}
}

// CancelMeetingTool defines the cancellation tool.
func CancelMeetingTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "cancel_meeting",
		Description: "Cancel a meeting from the calendar. You can only cancel the meeting you applied for.",
	}
}

// AttendMeetingTool defines the attendance tool.
func AttendMeetingTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "attend_meeting",
		Description: "Attend a meeting into the calendar. You should arrive at the meeting either 5 minutes " +
			"before it starts or 5 minutes after it begins. Don't arrive too early or too late.",
	}
}

// JumpTimeTool defines the virtual clock tool.
func JumpTimeTool() *mcp.Tool {
	return &mcp.Tool{
		Name: "jump_time",
		Description: "When you have no other tasks at hand and plenty of time before the next task, " +
			"you can skip the current time and start the next task.",
	}
}

// GetCurrentTimeTool defines the clock read tool.
func GetCurrentTimeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_current_time",
		Description: "Return the current calendar time.",
	}
}

// ListMeetingsTool defines the calendar listing tool.
func ListMeetingsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_meetings",
		Description: "List every booked meeting ordered by start time.",
	}
}

// WindowInput is the time window shared by several tools.
type WindowInput struct {
	Start string `json:"start" jsonschema:"ISO datetime string, e.g. 2025-10-20T10:00:00"`
	End   string `json:"end" jsonschema:"ISO datetime string, e.g. 2025-10-20T10:30:00"`
}

// AvailableRoomsResult is the structured output of get_available_rooms.
type AvailableRoomsResult struct {
	Rooms   []string `json:"rooms" jsonschema:"free rooms in pool order"`
	Message string   `json:"message" jsonschema:"human-readable summary"`
}

// BookMeetingInput is the input of book_meeting.
type BookMeetingInput struct {
	Applicant string `json:"applicant" jsonschema:"your name"`
	Attendees string `json:"attendees" jsonschema:"comma-separated attendees, e.g. Jeff Young,Brian Lewis"`
	RoomName  string `json:"room_name" jsonschema:"room name, e.g. Room_01"`
	Start     string `json:"start" jsonschema:"ISO datetime string, e.g. 2025-10-20T10:00:00"`
	End       string `json:"end" jsonschema:"ISO datetime string, e.g. 2025-10-20T11:00:00"`
	Summary   string `json:"summary,omitempty" jsonschema:"optional meeting summary shared with attendees"`
	Note      string `json:"note,omitempty" jsonschema:"optional free-form note"`
}

// ConflictEntry describes one blocking meeting.
type ConflictEntry struct {
	Participant string `json:"participant" jsonschema:"requested participant who is busy"`
	Role        string `json:"role" jsonschema:"applicant or attendee in the blocking meeting"`
	Start       string `json:"start" jsonschema:"blocking meeting start"`
	End         string `json:"end" jsonschema:"blocking meeting end"`
	RoomName    string `json:"room_name" jsonschema:"blocking meeting room"`
}

// BookMeetingResult is the structured output of book_meeting.
type BookMeetingResult struct {
	Success     bool            `json:"success"`
	FailureKind string          `json:"failure_kind,omitempty" jsonschema:"failure classification when success is false"`
	Message     string          `json:"message"`
	MeetingID   int64           `json:"meeting_id,omitempty"`
	Conflicts   []ConflictEntry `json:"conflicts,omitempty"`
}

// CancelMeetingInput is the input of cancel_meeting.
type CancelMeetingInput struct {
	Applicant string `json:"applicant" jsonschema:"your name"`
	Start     string `json:"start" jsonschema:"start of the meeting to cancel, not the current time (ISO datetime string)"`
	End       string `json:"end" jsonschema:"end of the meeting to cancel (ISO datetime string)"`
	RoomName  string `json:"room_name" jsonschema:"room name, e.g. Room_01"`
}

// AttendMeetingInput is the input of attend_meeting.
type AttendMeetingInput struct {
	AgentName string `json:"agent_name" jsonschema:"your name"`
	RoomName  string `json:"room_name" jsonschema:"room name, e.g. Room_01"`
	Start     string `json:"start" jsonschema:"start of the meeting to attend, not the current time (ISO datetime string)"`
	End       string `json:"end" jsonschema:"end of the meeting to attend (ISO datetime string)"`
}

// OutcomeResult is the structured output of tools that only report success.
type OutcomeResult struct {
	Success     bool   `json:"success"`
	FailureKind string `json:"failure_kind,omitempty"`
	Message     string `json:"message"`
	Now         string `json:"now,omitempty" jsonschema:"calendar time after the call"`
}

// JumpTimeInput is the input of jump_time.
type JumpTimeInput struct {
	Minutes float64 `json:"minutes" jsonschema:"the time you want to skip, in minutes"`
}

// CurrentTimeInput is the empty input of get_current_time.
type CurrentTimeInput struct{}

// CurrentTimeResult is the structured output of get_current_time.
type CurrentTimeResult struct {
	Now string `json:"now" jsonschema:"current calendar time"`
}

// ListMeetingsInput is the empty input of list_meetings.
type ListMeetingsInput struct{}

// MeetingEntry is a readable meeting.
type MeetingEntry struct {
	ID              int64             `json:"id"`
	Start           string            `json:"start"`
	End             string            `json:"end"`
	Applicant       string            `json:"applicant"`
	Attendees       []string          `json:"attendees"`
	RoomName        string            `json:"room_name"`
	Summary         string            `json:"summary,omitempty"`
	ActualAttendees []string          `json:"actual_attendees,omitempty"`
	AttendTime      map[string]string `json:"attend_time,omitempty"`
}

// ListMeetingsResult is the structured output of list_meetings.
type ListMeetingsResult struct {
	Meetings []MeetingEntry `json:"meetings"`
}
