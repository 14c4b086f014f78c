package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/meeting-calendar/internal/application"
)

type clockService interface {
	Now(ctx context.Context) time.Time
	JumpTime(ctx context.Context, minutes float64) application.JumpResult
}

type ClockHandler struct {
	service   clockService
	responder responder
	logger    *slog.Logger
}

func NewClockHandler(service clockService, logger *slog.Logger) *ClockHandler {
	base := defaultLogger(logger)
	return &ClockHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ClockHandler) Now(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, clockResponse{Now: application.FormatISO(h.service.Now(r.Context()))})
}

func (h *ClockHandler) Jump(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes == nil {
		handlerLogger(r.Context(), h.logger, "ClockHandler", "Jump", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode jump request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result := h.service.JumpTime(r.Context(), *req.Minutes)
	h.responder.writeJSON(r.Context(), w, resultStatus(result.OperationResult, http.StatusOK), jumpResponse{
		resultDTO: toResultDTO(result.OperationResult),
		Now:       application.FormatISO(result.Now),
	})
}

type jumpRequest struct {
	Minutes *float64 `json:"minutes"`
}

type clockResponse struct {
	Now string `json:"now"`
}

type jumpResponse struct {
	resultDTO
	Now string `json:"now"`
}
