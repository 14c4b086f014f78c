package scheduler

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvertedWindow is returned when a window does not end after it starts.
	ErrInvertedWindow = errors.New("scheduler: end must be after start")
	// ErrOutsideBusinessHours is returned when a window leaves the bookable hours.
	ErrOutsideBusinessHours = errors.New("scheduler: outside business hours")
)

// Policy holds the bookable room pool and daily business hours.
type Policy struct {
	Rooms []string
	// Open and Close are wall clock times of day, expressed as offsets
	// from 00:00.
	Open  time.Duration
	Close time.Duration
}

// DefaultRooms returns Room_01 through Room_10.
func DefaultRooms() []string {
	rooms := make([]string, 10)
	for i := range rooms {
		rooms[i] = fmt.Sprintf("Room_%02d", i+1)
	}
	return rooms
}

// DefaultPolicy returns ten rooms bookable from 09:00 to 17:00.
func DefaultPolicy() Policy {
	return Policy{
		Rooms: DefaultRooms(),
		Open:  9 * time.Hour,
		Close: 17 * time.Hour,
	}
}

// Validate checks that the policy can accept bookings.
func (p Policy) Validate() error {
	if len(p.Rooms) == 0 {
		return errors.New("at least one room is required")
	}
	if len(Unique(p.Rooms)) != len(p.Rooms) {
		return errors.New("room names must be unique and non-empty")
	}
	if p.Open < 0 || p.Close > 24*time.Hour || p.Open >= p.Close {
		return fmt.Errorf("business hours %s-%s are invalid", p.Open, p.Close)
	}
	return nil
}

// HasRoom reports whether name is in the room pool.
func (p Policy) HasRoom(name string) bool {
	for _, room := range p.Rooms {
		if room == name {
			return true
		}
	}
	return false
}

// CheckWindow validates that [start, end) is a forward interval lying on a
// single day within business hours. Both bounds are inclusive of the
// opening and closing instants.
func (p Policy) CheckWindow(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvertedWindow
	}
	day := midnight(start)
	if !midnight(end).Equal(day) && !end.Equal(day.AddDate(0, 0, 1)) {
		return ErrOutsideBusinessHours
	}
	if start.Before(clockOn(day, p.Open)) || end.After(clockOn(day, p.Close)) {
		return ErrOutsideBusinessHours
	}
	return nil
}

// OpenLabel renders the opening time like "9:00 AM".
func (p Policy) OpenLabel() string {
	return clockLabel(p.Open)
}

// CloseLabel renders the closing time like "5:00 PM".
func (p Policy) CloseLabel() string {
	return clockLabel(p.Close)
}

func clockLabel(offset time.Duration) string {
	return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(offset).Format("3:04 PM")
}

func midnight(t time.Time) time.Time {
	return clockOn(t, 0)
}

// clockOn returns the instant showing the given time of day on t's date.
// Offsets are split into clock fields so a DST transition does not move them.
func clockOn(t time.Time, offset time.Duration) time.Time {
	y, m, d := t.Date()
	hour := int(offset / time.Hour)
	minute := int(offset % time.Hour / time.Minute)
	sec := int(offset % time.Minute / time.Second)
	return time.Date(y, m, d, hour, minute, sec, 0, t.Location())
}
