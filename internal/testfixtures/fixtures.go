package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence"
)

var meetingCounter uint64

var referenceTime = time.Date(2025, time.October, 20, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures:
// the opening of business on a Monday.
func ReferenceTime() time.Time {
	return referenceTime
}

// MeetingFixture represents a deterministic meeting that can be materialised
// for application or persistence tests.
type MeetingFixture struct {
	Applicant string
	Attendees []string
	RoomName  string
	Start     time.Time
	End       time.Time
	Summary   string
	Note      string
}

// MeetingOption configures the generated meeting fixture.
type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a one-hour meeting at 10:00 in Room_01 booked
// by a generated applicant, with optional overrides.
func NewMeetingFixture(opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		Applicant: fmt.Sprintf("Applicant %03d", idx),
		RoomName:  "Room_01",
		Start:     At(10, 0),
		End:       At(11, 0),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithApplicant overrides the generated applicant.
func WithApplicant(name string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Applicant = name
	}
}

// WithAttendees sets the invited attendees.
func WithAttendees(names ...string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Attendees = append([]string(nil), names...)
	}
}

// WithRoom overrides the room.
func WithRoom(room string) MeetingOption {
	return func(f *MeetingFixture) {
		f.RoomName = room
	}
}

// WithWindow overrides start and end.
func WithWindow(start, end time.Time) MeetingOption {
	return func(f *MeetingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithSummary sets the summary handed to attendees on check-in.
func WithSummary(summary string) MeetingOption {
	return func(f *MeetingFixture) {
		f.Summary = summary
	}
}

// Record converts the fixture into a persistence record.
func (f MeetingFixture) Record() persistence.Meeting {
	return persistence.Meeting{
		Start:     f.Start,
		End:       f.End,
		Applicant: f.Applicant,
		Attendees: append([]string(nil), f.Attendees...),
		RoomName:  f.RoomName,
		Summary:   f.Summary,
		Note:      f.Note,
	}
}

// Params converts the fixture into booking parameters.
func (f MeetingFixture) Params() application.BookMeetingParams {
	return application.BookMeetingParams{
		Applicant: f.Applicant,
		Attendees: append([]string(nil), f.Attendees...),
		Start:     f.Start,
		End:       f.End,
		RoomName:  f.RoomName,
		Summary:   f.Summary,
		Note:      f.Note,
	}
}

// Key returns the natural key of the fixture.
func (f MeetingFixture) Key() persistence.MeetingKey {
	return persistence.MeetingKey{RoomName: f.RoomName, Start: f.Start, End: f.End}
}
