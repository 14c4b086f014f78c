package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/clock"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// ServiceFactory assists tests with constructing application services using
// a shared virtual clock and policy.
type ServiceFactory struct {
	Clock  *clock.Virtual
	Policy scheduler.Policy
	Logger *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:  NewClock(time.Time{}),
		Policy: scheduler.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(c *clock.Virtual) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = c
	}
}

// WithPolicy overrides the room pool and business hours.
func WithPolicy(policy scheduler.Policy) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Policy = policy
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewMeetingService builds a meeting service over meetings.
func (f *ServiceFactory) NewMeetingService(meetings application.MeetingRepository) *application.MeetingService {
	return application.NewMeetingServiceWithLogger(meetings, f.Clock, f.Policy, f.Logger)
}

// NewSQLiteMeetingService builds a meeting service over a fresh migrated
// SQLite database owned by tb.
func (f *ServiceFactory) NewSQLiteMeetingService(tb testing.TB) *application.MeetingService {
	tb.Helper()
	return f.NewMeetingService(NewSQLiteHarness(tb).Meetings)
}
