package application

import (
	"fmt"
	"strings"
	"time"
)

// TimestampHint is the message returned when a caller supplies a window
// that is not an ISO-8601 timestamp.
const TimestampHint = "The input parameters `start_time` and `end_time` must be in ISO format like `2025-10-20T10:00:00`"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// wall-clock times in loc; values with an offset are converted into loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.In(loc), nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, value, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 timestamp", value)
}

// ParseWindow parses a start/end pair, reporting every malformed field.
func ParseWindow(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	vErr := &ValidationError{}
	startAt, err := ParseTimestamp(start, loc)
	if err != nil {
		vErr.add("start_time", TimestampHint)
	}
	endAt, err := ParseTimestamp(end, loc)
	if err != nil {
		vErr.add("end_time", TimestampHint)
	}
	if err := vErr.err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startAt, endAt, nil
}

// FormatDisplay renders t as "2006-01-02 15:04:05", adding microseconds
// only when they are non-zero.
func FormatDisplay(t time.Time) string {
	return formatWallClock(t, " ")
}

// FormatISO renders t as "2006-01-02T15:04:05" without a zone, adding
// microseconds only when they are non-zero.
func FormatISO(t time.Time) string {
	return formatWallClock(t, "T")
}

func formatWallClock(t time.Time, sep string) string {
	layout := "2006-01-02" + sep + "15:04:05"
	if t.Nanosecond()/int(time.Microsecond) != 0 {
		layout += ".000000"
	}
	return t.Format(layout)
}
