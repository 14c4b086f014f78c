package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/meeting-calendar/internal/clock"
	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/scheduler"
)

const tracerName = "github.com/example/meeting-calendar/internal/application"

// MeetingRepository captures the persistence operations needed by the service.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting persistence.Meeting) (persistence.Meeting, error)
	ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error)
	DeleteMeeting(ctx context.Context, applicant string, key persistence.MeetingKey) error
	RecordAttendance(ctx context.Context, key persistence.MeetingKey, identity string, at time.Time) (persistence.Meeting, error)
}

// Clock is the virtual time source shared with the simulation driver.
type Clock interface {
	Now() time.Time
	Set(t time.Time)
	Advance(d time.Duration) time.Time
}

// MeetingService books, cancels and attends meetings against a virtual
// clock. Operations are serialized so check-then-insert sequences cannot
// interleave.
type MeetingService struct {
	mu       sync.Mutex
	meetings MeetingRepository
	clock    Clock
	policy   scheduler.Policy
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewMeetingService constructs a meeting service with the provided dependencies.
func NewMeetingService(meetings MeetingRepository, clk Clock, policy scheduler.Policy) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, clk, policy, nil)
}

// NewMeetingServiceWithLogger constructs a meeting service with a specified logger.
func NewMeetingServiceWithLogger(meetings MeetingRepository, clk Clock, policy scheduler.Policy, logger *slog.Logger) *MeetingService {
	if len(policy.Rooms) == 0 {
		policy = scheduler.DefaultPolicy()
	}
	return &MeetingService{
		meetings: meetings,
		clock:    clk,
		policy:   policy,
		logger:   defaultLogger(logger),
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "MeetingService."+operation, trace.WithAttributes(attrs...))
}

// Policy returns the room pool and business hours in force.
func (s *MeetingService) Policy() scheduler.Policy {
	return s.policy
}

// Now returns the current virtual time.
func (s *MeetingService) Now(ctx context.Context) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now()
}

// AvailableRooms lists, in pool order, the rooms free for the whole window.
// An inverted window or one outside business hours yields no rooms.
func (s *MeetingService) AvailableRooms(ctx context.Context, start, end time.Time) (rooms []string, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	start, end = wholeSeconds(start), wholeSeconds(end)
	ctx, span := s.startSpan(ctx, "AvailableRooms")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "AvailableRooms", "start", FormatISO(start), "end", FormatISO(end))
	defer func() {
		if err != nil {
			recordSpanError(span, err)
			logger.ErrorContext(ctx, "failed to list available rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "available rooms listed", "count", len(rooms))
	}()

	return s.availableRoomsLocked(ctx, start, end)
}

func (s *MeetingService) availableRoomsLocked(ctx context.Context, start, end time.Time) ([]string, error) {
	if s.policy.CheckWindow(start, end) != nil {
		return []string{}, nil
	}
	existing, err := s.overlapping(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return scheduler.FreeRooms(s.policy.Rooms, existing, start, end), nil
}

// BookMeeting validates and stores a new meeting. Both bounds are cut to
// whole seconds first, matching storage precision. The gates run in order
// and the first failing one decides the result: applicant, time window, room name,
// room availability, participant conflicts, then the storage uniqueness
// constraint. Unexpected storage failures are returned as errors.
func (s *MeetingService) BookMeeting(ctx context.Context, params BookMeetingParams) (result BookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	params.Start, params.End = wholeSeconds(params.Start), wholeSeconds(params.End)
	applicant := strings.TrimSpace(params.Applicant)
	attendees := normalizeIdentities(params.Attendees)

	ctx, span := s.startSpan(ctx, "BookMeeting",
		attribute.String("calendar.room", params.RoomName),
		attribute.String("calendar.applicant", applicant),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "BookMeeting",
		"applicant", applicant,
		"room", params.RoomName,
		"start", FormatISO(params.Start),
		"end", FormatISO(params.End),
	)
	defer func() {
		if err != nil {
			recordSpanError(span, err)
			logger.ErrorContext(ctx, "failed to book meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(attribute.Bool("calendar.success", result.Success), attribute.String("calendar.failure_kind", string(result.Kind)))
		if !result.Success {
			logger.InfoContext(ctx, "booking rejected", "failure_kind", result.Kind, "conflicted_participants", len(result.Conflicts))
			return
		}
		logger.With("meeting_id", result.Meeting.ID).InfoContext(ctx, "meeting booked")
	}()

	if applicant == "" {
		result.OperationResult = failed(FailureInvalidApplicant, "Meeting Booking Failed: Applicant is required")
		return
	}

	if windowErr := s.policy.CheckWindow(params.Start, params.End); windowErr != nil {
		kind := FailureBusinessHours
		if errors.Is(windowErr, scheduler.ErrInvertedWindow) {
			kind = FailureInvalidWindow
		}
		result.OperationResult = failed(kind, fmt.Sprintf(
			"Meeting Booking Failed: Meeting time must be between %s and %s",
			s.policy.OpenLabel(), s.policy.CloseLabel()))
		return
	}

	if !s.policy.HasRoom(params.RoomName) {
		result.OperationResult = failed(FailureInvalidRoom,
			"Meeting Booking Failed: Invalid room name. Available rooms: "+strings.Join(s.policy.Rooms, ", "))
		return
	}

	var existing []scheduler.Schedule
	existing, err = s.overlapping(ctx, params.Start, params.End)
	if err != nil {
		return
	}
	if !slices.Contains(scheduler.FreeRooms(s.policy.Rooms, existing, params.Start, params.End), params.RoomName) {
		result.OperationResult = failed(FailureRoomUnavailable, fmt.Sprintf(
			"Meeting Booking Failed: Room %s is not available during the requested time", params.RoomName))
		return
	}

	candidate := scheduler.Schedule{
		Applicant: applicant,
		Attendees: attendees,
		Room:      params.RoomName,
		Start:     params.Start,
		End:       params.End,
	}
	if conflicts := groupParticipantConflicts(scheduler.DetectConflicts(existing, candidate)); len(conflicts) > 0 {
		result.OperationResult = failed(FailureParticipantConflict, "Meeting Booking Failed: Scheduling conflicts detected")
		result.Conflicts = conflicts
		return
	}

	var stored persistence.Meeting
	stored, err = s.meetings.CreateMeeting(ctx, persistence.Meeting{
		Start:     params.Start,
		End:       params.End,
		Applicant: applicant,
		Attendees: attendees,
		RoomName:  params.RoomName,
		Summary:   params.Summary,
		Note:      params.Note,
	})
	if errors.Is(err, persistence.ErrDuplicate) {
		err = nil
		result.OperationResult = failed(FailureDuplicate, "Meeting Booking Failed: Meeting conflicts with existing booking")
		return
	}
	if err != nil {
		err = fmt.Errorf("store meeting: %w", err)
		return
	}

	meeting := meetingFromRecord(stored)
	result.Meeting = &meeting
	result.OperationResult = succeeded(fmt.Sprintf("Meeting successfully booked in %s from %s to %s",
		params.RoomName, FormatDisplay(params.Start), FormatDisplay(params.End)))
	return
}

// CancelMeeting deletes the meeting identified by room and exact window,
// provided applicant booked it.
func (s *MeetingService) CancelMeeting(ctx context.Context, applicant string, start, end time.Time, room string) (result OperationResult, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	start, end = wholeSeconds(start), wholeSeconds(end)
	ctx, span := s.startSpan(ctx, "CancelMeeting", attribute.String("calendar.room", room))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "CancelMeeting",
		"applicant", applicant,
		"room", room,
		"start", FormatISO(start),
		"end", FormatISO(end),
	)
	defer func() {
		if err != nil {
			recordSpanError(span, err)
			logger.ErrorContext(ctx, "failed to cancel meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if !result.Success {
			logger.InfoContext(ctx, "cancellation rejected", "failure_kind", result.Kind)
			return
		}
		logger.InfoContext(ctx, "meeting cancelled")
	}()

	err = s.meetings.DeleteMeeting(ctx, applicant, persistence.MeetingKey{RoomName: room, Start: start, End: end})
	if errors.Is(err, persistence.ErrNotFound) {
		err = nil
		result = failed(FailureNotFound, "Meeting Cancelling Failed: Meeting not found or you are not the applicant")
		return
	}
	if err != nil {
		err = fmt.Errorf("delete meeting: %w", err)
		return
	}

	result = succeeded(fmt.Sprintf("Meeting cancelled successfully for %s at %s", room, FormatDisplay(start)))
	return
}

// AttendMeeting checks identity into the meeting at the current virtual time
// and then moves the clock to the meeting's end. Attending again overwrites
// the earlier check-in time. Storage failures are logged and reported as a
// FailureStorage result.
func (s *MeetingService) AttendMeeting(ctx context.Context, identity, room string, start, end time.Time) (result AttendResult) {
	if s == nil {
		return AttendResult{OperationResult: failed(FailureStorage, attendStorageFailure)}
	}
	start, end = wholeSeconds(start), wholeSeconds(end)
	ctx, span := s.startSpan(ctx, "AttendMeeting",
		attribute.String("calendar.room", room),
		attribute.String("calendar.identity", identity),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "AttendMeeting",
		"identity", identity,
		"room", room,
		"start", FormatISO(start),
		"end", FormatISO(end),
	)

	now := s.clock.Now()
	stored, err := s.meetings.RecordAttendance(ctx, persistence.MeetingKey{RoomName: room, Start: start, End: end}, identity, now)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		logger.InfoContext(ctx, "attendance rejected", "failure_kind", FailureNotFound)
		return AttendResult{OperationResult: failed(FailureNotFound, fmt.Sprintf(
			"Cannot find a meeting in %s from %s to %s.", room, FormatDisplay(start), FormatDisplay(end)))}
	case err != nil:
		recordSpanError(span, err)
		logger.ErrorContext(ctx, "failed to record attendance", "error", err, "error_kind", ErrorKind(err))
		return AttendResult{OperationResult: failed(FailureStorage, attendStorageFailure)}
	}

	s.clock.Set(end)

	meeting := meetingFromRecord(stored)
	message := fmt.Sprintf("%s successfully attended the meeting in %s from %s to %s.",
		identity, room, FormatISO(now), FormatISO(end))
	if meeting.Summary != "" {
		message = fmt.Sprintf("%s successfully attended the meeting in %s from %s to %s. Here are the meeting summary and some new tasks. Please complete the new tasks by theie deadline: %s",
			identity, room, FormatISO(now), FormatISO(end), meeting.Summary)
	}

	logger.With("meeting_id", meeting.ID, "checked_in_at", FormatISO(now)).InfoContext(ctx, "meeting attended")
	return AttendResult{OperationResult: succeeded(message), Meeting: &meeting, CheckedInAt: now}
}

const attendStorageFailure = "Failed to record attendance due to a system error, please try again later."

// JumpTime moves the virtual clock by minutes. Negative values rewind it.
func (s *MeetingService) JumpTime(ctx context.Context, minutes float64) JumpResult {
	if s == nil {
		return JumpResult{OperationResult: failed(FailureInvalidDuration, "Can not jump time now, please try again.")}
	}
	ctx, span := s.startSpan(ctx, "JumpTime", attribute.Float64("calendar.minutes", minutes))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.loggerWith(ctx, "JumpTime", "minutes", minutes)

	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || math.Abs(minutes) > math.MaxInt64/float64(time.Minute) {
		logger.WarnContext(ctx, "jump rejected", "failure_kind", FailureInvalidDuration)
		return JumpResult{
			OperationResult: failed(FailureInvalidDuration, "Can not jump time now, please try again."),
			Now:             s.clock.Now(),
		}
	}

	now := s.clock.Advance(clock.Minutes(minutes))
	logger.InfoContext(ctx, "virtual time advanced", "now", FormatISO(now))
	return JumpResult{
		OperationResult: succeeded(fmt.Sprintf("Successfully jumped time for %s minutes.", strconv.FormatFloat(minutes, 'f', -1, 64))),
		Now:             now,
	}
}

// ListMeetings returns every meeting ordered by start time.
func (s *MeetingService) ListMeetings(ctx context.Context) (meetings []Meeting, err error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}
	ctx, span := s.startSpan(ctx, "ListMeetings")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		recordSpanError(span, err)
		s.loggerWith(ctx, "ListMeetings").ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	meetings = make([]Meeting, 0, len(records))
	for _, record := range records {
		meetings = append(meetings, meetingFromRecord(record))
	}
	return meetings, nil
}

// NextMeeting finds the earliest meeting of identity that starts after the
// current virtual time.
func (s *MeetingService) NextMeeting(ctx context.Context, identity string) (next NextMeeting, err error) {
	if s == nil {
		return NextMeeting{}, fmt.Errorf("MeetingService is nil")
	}
	ctx, span := s.startSpan(ctx, "NextMeeting", attribute.String("calendar.identity", identity))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{StartsAfter: &now, Participant: identity})
	if err != nil {
		recordSpanError(span, err)
		s.loggerWith(ctx, "NextMeeting", "identity", identity).ErrorContext(ctx, "failed to look up next meeting", "error", err, "error_kind", ErrorKind(err))
		return NextMeeting{}, fmt.Errorf("list upcoming meetings: %w", err)
	}
	if len(records) == 0 {
		return NextMeeting{}, nil
	}

	upcoming := records[0]
	minutes := int(upcoming.Start.Sub(now).Minutes())
	if minutes <= 0 {
		return NextMeeting{}, nil
	}
	return NextMeeting{
		Found:    true,
		Minutes:  minutes,
		RoomName: upcoming.RoomName,
		Start:    upcoming.Start,
		End:      upcoming.End,
	}, nil
}

// wholeSeconds drops sub-second precision; meetings are stored and keyed
// to the second.
func wholeSeconds(t time.Time) time.Time {
	return t.Truncate(time.Second)
}

func (s *MeetingService) overlapping(ctx context.Context, start, end time.Time) ([]scheduler.Schedule, error) {
	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{OverlapStart: &start, OverlapEnd: &end})
	if err != nil {
		return nil, fmt.Errorf("list overlapping meetings: %w", err)
	}
	schedules := make([]scheduler.Schedule, 0, len(records))
	for _, record := range records {
		schedules = append(schedules, scheduler.Schedule{
			ID:        record.ID,
			Applicant: record.Applicant,
			Attendees: record.Attendees,
			Room:      record.RoomName,
			Summary:   record.Summary,
			Start:     record.Start,
			End:       record.End,
		})
	}
	return schedules, nil
}

func groupParticipantConflicts(conflicts []scheduler.Conflict) []ParticipantConflicts {
	var groups []ParticipantConflicts
	for _, c := range conflicts {
		if c.Type != scheduler.ConflictTypeParticipant {
			continue
		}
		if len(groups) == 0 || groups[len(groups)-1].Participant != c.Participant {
			groups = append(groups, ParticipantConflicts{Participant: c.Participant})
		}
		group := &groups[len(groups)-1]
		group.Meetings = append(group.Meetings, ConflictingMeeting{
			MeetingID: c.With.ID,
			Role:      string(c.Role),
			Start:     c.With.Start,
			End:       c.With.End,
			RoomName:  c.With.Room,
			Summary:   c.With.Summary,
			Applicant: c.With.Applicant,
			Attendees: slices.Clone(c.With.Attendees),
		})
	}
	return groups
}

func normalizeIdentities(values []string) []string {
	trimmed := make([]string, 0, len(values))
	for _, v := range values {
		trimmed = append(trimmed, strings.TrimSpace(v))
	}
	return scheduler.Unique(trimmed)
}

func meetingFromRecord(record persistence.Meeting) Meeting {
	return Meeting{
		ID:              record.ID,
		Start:           record.Start,
		End:             record.End,
		Applicant:       record.Applicant,
		Attendees:       slices.Clone(record.Attendees),
		RoomName:        record.RoomName,
		Summary:         record.Summary,
		Note:            record.Note,
		ActualAttendees: slices.Clone(record.ActualAttendees),
		AttendTime:      cloneTimes(record.AttendTime),
		CreatedAt:       record.CreatedAt,
	}
}

func cloneTimes(in map[string]time.Time) map[string]time.Time {
	out := make(map[string]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
