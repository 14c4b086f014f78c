package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a record collides with the unique
	// (start_time, end_time, room_name) key of an existing meeting.
	ErrDuplicate = errors.New("persistence: duplicate record")
)
