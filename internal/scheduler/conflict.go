package scheduler

import "time"

// Schedule is the scheduling view of a booked meeting.
type Schedule struct {
	ID        int64
	Applicant string
	Attendees []string
	Room      string
	Summary   string
	Start     time.Time
	End       time.Time
}

// Participants returns the applicant followed by the attendees, without
// duplicates and in first-seen order.
func (s Schedule) Participants() []string {
	return Unique(append([]string{s.Applicant}, s.Attendees...))
}

// ConflictType describes the type of conflict detected between schedules.
type ConflictType string

const (
	// ConflictTypeParticipant indicates a participant is double-booked.
	ConflictTypeParticipant ConflictType = "participant"
	// ConflictTypeRoom indicates a room is double-booked.
	ConflictTypeRoom ConflictType = "room"
)

// Role is the capacity in which a participant takes part in a schedule.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAttendee  Role = "attendee"
)

// Conflict details an overlapping schedule relation that callers can present to users.
type Conflict struct {
	Type        ConflictType
	Participant string
	// Role is how Participant takes part in With. Empty for room conflicts.
	Role Role
	With Schedule
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch are not overlapping.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DetectConflicts identifies conflicts for the candidate schedule against
// existing ones. Participant conflicts are grouped by candidate participant
// in Participants order, then by the order of existing. Room conflicts
// follow. Identities match only by exact string equality.
func DetectConflicts(existing []Schedule, candidate Schedule) []Conflict {
	var overlapping []Schedule
	for _, s := range existing {
		if Overlaps(candidate.Start, candidate.End, s.Start, s.End) {
			overlapping = append(overlapping, s)
		}
	}

	var conflicts []Conflict
	for _, person := range candidate.Participants() {
		for _, s := range overlapping {
			role, ok := roleOf(person, s)
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{
				Type:        ConflictTypeParticipant,
				Participant: person,
				Role:        role,
				With:        s,
			})
		}
	}
	for _, s := range overlapping {
		if s.Room == candidate.Room {
			conflicts = append(conflicts, Conflict{Type: ConflictTypeRoom, With: s})
		}
	}
	return conflicts
}

// FreeRooms returns the rooms of pool, in pool order, that no schedule in
// existing occupies during [start, end).
func FreeRooms(pool []string, existing []Schedule, start, end time.Time) []string {
	busy := make(map[string]bool)
	for _, s := range existing {
		if Overlaps(start, end, s.Start, s.End) {
			busy[s.Room] = true
		}
	}
	free := make([]string, 0, len(pool))
	for _, room := range pool {
		if !busy[room] {
			free = append(free, room)
		}
	}
	return free
}

func roleOf(person string, s Schedule) (Role, bool) {
	if s.Applicant == person {
		return RoleApplicant, true
	}
	for _, attendee := range s.Attendees {
		if attendee == person {
			return RoleAttendee, true
		}
	}
	return "", false
}

// Unique drops empty and repeated identities, keeping first-seen order.
func Unique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
