package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a request id and exposes it downstream", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		var seen string
		handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := RequestIDFromContext(r.Context())
			if !ok {
				t.Errorf("expected request id in context")
			}
			if LoggerFromContext(r.Context()) == nil {
				t.Errorf("expected request logger in context")
			}
			seen = id
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clock", nil))

		if _, err := uuid.Parse(seen); err != nil {
			t.Fatalf("expected uuid request id, got %q", seen)
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Fatalf("expected response header %q, got %q", seen, rec.Header().Get(RequestIDHeader))
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected start and completion logs, got %d lines", len(lines))
		}
		var completed map[string]any
		if err := json.Unmarshal([]byte(lines[1]), &completed); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if completed["request_id"] != seen || completed["status"] != float64(http.StatusTeapot) {
			t.Fatalf("unexpected completion entry %v", completed)
		}
	})

	t.Run("keeps a caller supplied request id", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/clock", nil)
		req.Header.Set(RequestIDHeader, "trace-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get(RequestIDHeader) != "trace-123" {
			t.Fatalf("expected caller request id to be echoed, got %q", rec.Header().Get(RequestIDHeader))
		}
	})
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	handler := Recoverer(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meetings", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
