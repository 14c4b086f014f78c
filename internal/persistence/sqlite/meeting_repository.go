package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/example/meeting-calendar/internal/logging"
	"github.com/example/meeting-calendar/internal/persistence"
)

const (
	// meetingTimeLayout is the ISO-8601 form stored in start_time and end_time.
	// Fixed width keeps lexical and chronological order identical.
	meetingTimeLayout = "2006-01-02T15:04:05"
	attendTimeLayout  = "2006-01-02T15:04:05.000000"
	listSeparator     = ", "
)

const meetingColumns = `id, start_time, end_time, applicant, attendees, room_name,
	COALESCE(summary, ''), COALESCE(note, ''), COALESCE(actual_attendees, ''),
	COALESCE(attend_time, '{}'), COALESCE(created_at, '')`

// MeetingRepository implements persistence.MeetingRepository using SQLite
type MeetingRepository struct {
	pool     *ConnectionPool
	retry    *RetryHelper
	mapper   *ErrorMapper
	location *time.Location
	logger   *slog.Logger
}

// RepositoryOption customises a MeetingRepository.
type RepositoryOption func(*MeetingRepository)

// WithLocation sets the location used to interpret stored wall-clock times.
func WithLocation(loc *time.Location) RepositoryOption {
	return func(r *MeetingRepository) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithLogger sets the fallback logger for storage warnings.
func WithLogger(logger *slog.Logger) RepositoryOption {
	return func(r *MeetingRepository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetryConfig overrides the busy-retry policy.
func WithRetryConfig(config RetryConfig) RepositoryOption {
	return func(r *MeetingRepository) {
		r.retry = NewRetryHelper(config)
	}
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool, opts ...RepositoryOption) *MeetingRepository {
	repo := &MeetingRepository{
		pool:     pool,
		retry:    NewRetryHelper(DefaultRetryConfig()),
		mapper:   NewErrorMapper(),
		location: time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// CreateMeeting inserts a meeting and returns it with the generated id and
// creation timestamp. A clash on (start_time, end_time, room_name) yields
// persistence.ErrDuplicate.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) (persistence.Meeting, error) {
	if meeting.RoomName == "" || meeting.Applicant == "" {
		return persistence.Meeting{}, fmt.Errorf("room name and applicant are required")
	}
	if !meeting.Start.Before(meeting.End) {
		return persistence.Meeting{}, fmt.Errorf("meeting start must precede end")
	}

	query := `
		INSERT INTO meetings (start_time, end_time, applicant, attendees, room_name, summary, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id, created_at
	`

	var createdAt string
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.DB().QueryRowContext(ctx, query,
			r.formatTime(meeting.Start),
			r.formatTime(meeting.End),
			meeting.Applicant,
			strings.Join(meeting.Attendees, listSeparator),
			meeting.RoomName,
			meeting.Summary,
			meeting.Note,
		).Scan(&meeting.ID, &createdAt)
	})
	if err != nil {
		return persistence.Meeting{}, err
	}

	meeting.Start = r.truncate(meeting.Start)
	meeting.End = r.truncate(meeting.End)
	meeting.Attendees = slices.Clone(meeting.Attendees)
	meeting.ActualAttendees = nil
	meeting.AttendTime = map[string]time.Time{}
	meeting.CreatedAt = parseCreatedAt(createdAt)
	return meeting, nil
}

// GetMeeting retrieves a meeting by its natural key.
func (r *MeetingRepository) GetMeeting(ctx context.Context, key persistence.MeetingKey) (persistence.Meeting, error) {
	query := `SELECT ` + meetingColumns + `
		FROM meetings
		WHERE start_time = ? AND end_time = ? AND room_name = ?`

	meeting, err := r.scanMeeting(ctx, r.pool.DB().QueryRowContext(ctx, query,
		r.formatTime(key.Start), r.formatTime(key.End), key.RoomName))
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// ListMeetings returns meetings matching the filter ordered by start time.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.OverlapEnd != nil {
		clauses = append(clauses, "start_time < ?")
		args = append(args, r.formatTime(*filter.OverlapEnd))
	}
	if filter.OverlapStart != nil {
		clauses = append(clauses, "end_time > ?")
		args = append(args, r.formatTime(*filter.OverlapStart))
	}
	if filter.StartsAfter != nil {
		clauses = append(clauses, "start_time > ?")
		args = append(args, r.formatTime(*filter.StartsAfter))
	}
	if filter.RoomName != "" {
		clauses = append(clauses, "room_name = ?")
		args = append(args, filter.RoomName)
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := r.scanMeeting(ctx, rows)
		if err != nil {
			return nil, err
		}
		if filter.Participant != "" && !meeting.HasParticipant(filter.Participant) {
			continue
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return meetings, nil
}

// DeleteMeeting removes the meeting matching the key only when applicant
// booked it. Any mismatch is reported as persistence.ErrNotFound.
func (r *MeetingRepository) DeleteMeeting(ctx context.Context, applicant string, key persistence.MeetingKey) error {
	query := `
		DELETE FROM meetings
		WHERE applicant = ? AND start_time = ? AND end_time = ? AND room_name = ?
	`

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, err := r.pool.DB().ExecContext(ctx, query,
			applicant, r.formatTime(key.Start), r.formatTime(key.End), key.RoomName)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// RecordAttendance adds identity to the actual attendees of the meeting and
// stores at as its check-in time, replacing any earlier value. The read and
// the write happen in one transaction.
func (r *MeetingRepository) RecordAttendance(ctx context.Context, key persistence.MeetingKey, identity string, at time.Time) (persistence.Meeting, error) {
	var updated persistence.Meeting

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			meeting, err := r.scanMeeting(ctx, tx.QueryRowContext(ctx, `SELECT `+meetingColumns+`
				FROM meetings
				WHERE start_time = ? AND end_time = ? AND room_name = ?`,
				r.formatTime(key.Start), r.formatTime(key.End), key.RoomName))
			if err != nil {
				return err
			}

			if !slices.Contains(meeting.ActualAttendees, identity) {
				meeting.ActualAttendees = append(meeting.ActualAttendees, identity)
			}
			slices.Sort(meeting.ActualAttendees)
			meeting.AttendTime[identity] = at.In(r.location)

			encoded, err := r.encodeAttendTime(meeting.AttendTime)
			if err != nil {
				return fmt.Errorf("encode attend_time: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE meetings
				SET actual_attendees = ?, attend_time = ?
				WHERE id = ?`,
				strings.Join(meeting.ActualAttendees, listSeparator), encoded, meeting.ID)
			if err != nil {
				return err
			}

			updated = meeting
			return nil
		})
	})
	if err != nil {
		return persistence.Meeting{}, err
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MeetingRepository) scanMeeting(ctx context.Context, row rowScanner) (persistence.Meeting, error) {
	var (
		meeting                                  persistence.Meeting
		start, end, attendees, actual, attendRaw string
		createdAt                                string
	)
	err := row.Scan(
		&meeting.ID,
		&start,
		&end,
		&meeting.Applicant,
		&attendees,
		&meeting.RoomName,
		&meeting.Summary,
		&meeting.Note,
		&actual,
		&attendRaw,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, err
	}

	if meeting.Start, err = time.ParseInLocation(meetingTimeLayout, start, r.location); err != nil {
		return persistence.Meeting{}, fmt.Errorf("parse start_time of meeting %d: %w", meeting.ID, err)
	}
	if meeting.End, err = time.ParseInLocation(meetingTimeLayout, end, r.location); err != nil {
		return persistence.Meeting{}, fmt.Errorf("parse end_time of meeting %d: %w", meeting.ID, err)
	}
	meeting.Attendees = SplitList(attendees)
	meeting.ActualAttendees = SplitList(actual)
	meeting.AttendTime = r.decodeAttendTime(ctx, meeting.ID, attendRaw)
	meeting.CreatedAt = parseCreatedAt(createdAt)
	return meeting, nil
}

// decodeAttendTime parses the attend_time column. A corrupt document is
// logged and treated as empty so attendance can still be recorded.
func (r *MeetingRepository) decodeAttendTime(ctx context.Context, meetingID int64, raw string) map[string]time.Time {
	out := make(map[string]time.Time)
	if strings.TrimSpace(raw) == "" {
		return out
	}

	var encoded map[string]string
	if err := json.Unmarshal([]byte(raw), &encoded); err != nil {
		r.log(ctx).WarnContext(ctx, "discarding corrupt attend_time", "meeting_id", meetingID, "error", err)
		return out
	}
	for identity, value := range encoded {
		at, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, r.location)
		if err != nil {
			r.log(ctx).WarnContext(ctx, "discarding unparsable check-in time",
				"meeting_id", meetingID, "identity", identity, "value", value)
			continue
		}
		out[identity] = at
	}
	return out
}

func (r *MeetingRepository) encodeAttendTime(values map[string]time.Time) (string, error) {
	encoded := make(map[string]string, len(values))
	for identity, at := range values {
		encoded[identity] = FormatISO(at.In(r.location))
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *MeetingRepository) log(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func (r *MeetingRepository) formatTime(t time.Time) string {
	return t.In(r.location).Format(meetingTimeLayout)
}

func (r *MeetingRepository) truncate(t time.Time) time.Time {
	return t.In(r.location).Truncate(time.Second)
}

// FormatISO renders t like an ISO-8601 timestamp without zone, adding
// microseconds only when they are non-zero.
func FormatISO(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format(meetingTimeLayout)
	}
	return t.Format(attendTimeLayout)
}

// SplitList parses a comma separated identity list, trimming entries and
// dropping empty ones.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseCreatedAt(value string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}
