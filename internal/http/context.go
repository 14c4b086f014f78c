package http

import (
	"context"
	"log/slog"

	"github.com/example/meeting-calendar/internal/logging"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithRequestID injects the identifier assigned to the current request.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext extracts the request identifier previously associated with the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger installed by RequestLogger, so
// handler entries share its request_id, and tags it with the handler and
// operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, defaultLogger(fallback)).With("handler", handlerName)
	if operation != "" {
		logger = logger.With("operation", operation)
	}
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}
