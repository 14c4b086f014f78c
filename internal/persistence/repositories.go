package persistence

import (
	"context"
	"time"
)

// MeetingFilter narrows meeting queries. Zero values disable a criterion.
type MeetingFilter struct {
	// OverlapStart and OverlapEnd select meetings with start < OverlapEnd and end > OverlapStart.
	OverlapStart *time.Time
	OverlapEnd   *time.Time
	// StartsAfter selects meetings starting strictly after the instant.
	StartsAfter *time.Time
	RoomName    string
	// Participant matches the applicant or any attendee exactly.
	Participant string
}

// MeetingRepository stores meetings and their attendance records.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) (Meeting, error)
	GetMeeting(ctx context.Context, key MeetingKey) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
	DeleteMeeting(ctx context.Context, applicant string, key MeetingKey) error
	RecordAttendance(ctx context.Context, key MeetingKey, identity string, at time.Time) (Meeting, error)
}
