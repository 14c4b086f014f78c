// Package clock provides the virtual time source shared by the calendar
// service and the simulation driver.
package clock

import (
	"sync"
	"time"
)

// Virtual is a manually driven clock. It never advances on its own; time
// moves only through Set and Advance. The zero value is not usable.
type Virtual struct {
	mu      sync.RWMutex
	current time.Time
}

// NewVirtual returns a clock initialised to start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{current: start}
}

// Now returns the current virtual instant.
func (c *Virtual) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Set moves the clock to t, forwards or backwards.
func (c *Virtual) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock by d and returns the updated time. Negative
// durations rewind the clock.
func (c *Virtual) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Minutes converts a possibly fractional minute count to a Duration,
// rounding to the nearest microsecond.
func Minutes(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute)).Round(time.Microsecond)
}
