package application

import "time"

// Meeting is the service-level view of a booked meeting.
type Meeting struct {
	ID              int64
	Start           time.Time
	End             time.Time
	Applicant       string
	Attendees       []string
	RoomName        string
	Summary         string
	Note            string
	ActualAttendees []string
	AttendTime      map[string]time.Time
	CreatedAt       time.Time
}

// BookMeetingParams wraps the data required to book a meeting.
type BookMeetingParams struct {
	Applicant string
	Attendees []string
	Start     time.Time
	End       time.Time
	RoomName  string
	Summary   string
	Note      string
}

// FailureKind classifies an expected, user-facing operation failure.
type FailureKind string

const (
	FailureInvalidApplicant    FailureKind = "invalid_applicant"
	FailureInvalidWindow       FailureKind = "invalid_window"
	FailureBusinessHours       FailureKind = "business_hours"
	FailureInvalidRoom         FailureKind = "invalid_room"
	FailureRoomUnavailable     FailureKind = "room_unavailable"
	FailureParticipantConflict FailureKind = "participant_conflict"
	FailureDuplicate           FailureKind = "duplicate_booking"
	FailureNotFound            FailureKind = "not_found"
	FailureStorage             FailureKind = "storage"
	FailureInvalidDuration     FailureKind = "invalid_duration"
)

// OperationResult carries the outcome of a calendar operation. Message is
// the text shown to the agent; Kind is empty on success.
type OperationResult struct {
	Success bool
	Kind    FailureKind
	Message string
}

func succeeded(message string) OperationResult {
	return OperationResult{Success: true, Message: message}
}

func failed(kind FailureKind, message string) OperationResult {
	return OperationResult{Kind: kind, Message: message}
}

// ConflictingMeeting describes an existing meeting that blocks a booking for
// one participant.
type ConflictingMeeting struct {
	MeetingID int64
	// Role is "applicant" or "attendee": how the participant takes part in the existing meeting.
	Role      string
	Start     time.Time
	End       time.Time
	RoomName  string
	Summary   string
	Applicant string
	Attendees []string
}

// ParticipantConflicts groups the conflicts of one requested participant.
type ParticipantConflicts struct {
	Participant string
	Meetings    []ConflictingMeeting
}

// BookingResult is returned by BookMeeting.
type BookingResult struct {
	OperationResult
	Meeting *Meeting
	// Conflicts lists participants with clashing meetings, applicant first
	// then attendees in request order.
	Conflicts []ParticipantConflicts
}

// ConflictsFor returns the conflicts recorded for identity.
func (r BookingResult) ConflictsFor(identity string) []ConflictingMeeting {
	for _, group := range r.Conflicts {
		if group.Participant == identity {
			return group.Meetings
		}
	}
	return nil
}

// AttendResult is returned by AttendMeeting.
type AttendResult struct {
	OperationResult
	Meeting     *Meeting
	CheckedInAt time.Time
}

// JumpResult is returned by JumpTime.
type JumpResult struct {
	OperationResult
	Now time.Time
}

// NextMeeting describes the next meeting of a participant relative to the
// virtual clock. Found is false when nothing starts at least a minute later.
type NextMeeting struct {
	Found    bool
	Minutes  int
	RoomName string
	Start    time.Time
	End      time.Time
}
