package application

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/example/meeting-calendar/internal/logging"
	"github.com/example/meeting-calendar/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger returns the request scoped logger, falling back to base,
// tagged with the service, the operation and the active trace when there is one.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, len(attrs)+6)
	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		pairs = append(pairs, "trace_id", sc.TraceID().String())
	}
	pairs = append(pairs, attrs...)
	return logging.FromContextOr(ctx, defaultLogger(base)).With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	var vErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, persistence.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &vErr):
		return "validation"
	default:
		return "unexpected"
	}
}
