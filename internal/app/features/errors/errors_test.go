package errors_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRender_StatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("description is required"), http.StatusBadRequest, "description is required"},
		{"not found", apperr.NotFound("Complaint not found"), http.StatusNotFound, "Complaint not found"},
		{"forbidden", apperr.Forbidden("Not authorized as an admin"), http.StatusForbidden, "Not authorized as an admin"},
		{"unauthenticated", apperr.Unauthenticated("Not authenticated"), http.StatusUnauthorized, "Not authenticated"},
		{"conflict", apperr.Conflict("User already exists"), http.StatusConflict, "User already exists"},
		{"rate limited", apperr.TooManyRequests("Too many login attempts"), http.StatusTooManyRequests, "Too many login attempts"},
		{"wrapped", fmt.Errorf("load: %w", apperr.NotFound("Department not found")), http.StatusNotFound, "Department not found"},
		{"internal", apperr.Internal(fmt.Errorf("mongo: socket closed")), http.StatusInternalServerError, "internal server error"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"},
	}

	el := uierrors.NewErrorLogger(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			el.Render(rec, httptest.NewRequest(http.MethodGet, "/api/complaints", nil), tt.err)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["message"] != tt.message {
				t.Errorf("message: got %q, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestRender_LogsOnlyInternal(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	el := uierrors.NewErrorLogger(zap.New(core))

	req := httptest.NewRequest(http.MethodPut, "/api/complaints/abc", nil)
	el.Render(httptest.NewRecorder(), req, apperr.NotFound("Complaint not found"))
	if logs.Len() != 0 {
		t.Fatalf("client errors should not be logged, got %d entries", logs.Len())
	}

	el.Render(httptest.NewRecorder(), req, apperr.Internal(fmt.Errorf("disk full")))
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != http.MethodPut || fields["path"] != "/api/complaints/abc" {
		t.Errorf("log fields: %v", fields)
	}
	if fields["code"] != "internal_error" {
		t.Errorf("code field = %v, want internal_error", fields["code"])
	}

	el.Render(httptest.NewRecorder(), req, apperr.TooManyRequests("slow down"))
	if logs.Len() != 1 {
		t.Errorf("429 should not be logged, got %d entries", logs.Len())
	}
}

func TestWrite_UsesCarriedStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.Write(rec, apperr.Unauthenticated("Not authenticated"))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"message\":\"Not authenticated\"}\n" {
		t.Errorf("body = %q", got)
	}
}
