package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/persistence"
)

var (
	errBadRequestBody  = errors.New("request body is not valid JSON")
	errMissingIdentity = errors.New("identity query parameter is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, persistence.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: localizedStatusMessage(http.StatusServiceUnavailable)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeValidation(ctx, w, vErr)
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, vErr *application.ValidationError) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		ErrorCode: "validation",
		Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
		Errors:    vErr.FieldErrors,
	})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// resultStatus maps an operation outcome to its HTTP status.
func resultStatus(result application.OperationResult, success int) int {
	if result.Success {
		return success
	}
	switch result.Kind {
	case application.FailureNotFound:
		return http.StatusNotFound
	case application.FailureInvalidDuration, application.FailureInvalidApplicant:
		return http.StatusUnprocessableEntity
	case application.FailureStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusConflict
	}
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request could not be understood."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current calendar."
	case http.StatusUnprocessableEntity:
		return "The request contains invalid fields."
	case http.StatusServiceUnavailable:
		return "The calendar is temporarily unavailable, please try again later."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
