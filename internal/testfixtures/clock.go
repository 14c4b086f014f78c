package testfixtures

import (
	"time"

	"github.com/example/meeting-calendar/internal/clock"
)

// NewClock returns a virtual clock initialised to start. When start is the
// zero value, the shared ReferenceTime is used.
func NewClock(start time.Time) *clock.Virtual {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return clock.NewVirtual(start)
}

// At returns the reference day at hour:minute.
func At(hour, minute int) time.Time {
	ref := ReferenceTime()
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, ref.Location())
}
