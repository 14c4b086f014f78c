package persistence

import "time"

// Meeting is a booked room reservation as stored in the meetings table.
// Start and End are wall-clock times in the calendar's location.
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

// Key returns the natural key of the meeting.
func (m Meeting) Key() MeetingKey {
	return MeetingKey{RoomName: m.RoomName, Start: m.Start, End: m.End}
}

// Participants returns the applicant followed by the invited attendees.
func (m Meeting) Participants() []string {
	out := make([]string, 0, len(m.Attendees)+1)
	out = append(out, m.Applicant)
	return append(out, m.Attendees...)
}

// HasParticipant reports whether identity is the applicant or an attendee.
func (m Meeting) HasParticipant(identity string) bool {
	if m.Applicant == identity {
		return true
	}
	for _, attendee := range m.Attendees {
		if attendee == identity {
			return true
		}
	}
	return false
}

// MeetingKey identifies a meeting by room and exact time window.
type MeetingKey struct {
	RoomName string
	Start    time.Time
	End      time.Time
}
