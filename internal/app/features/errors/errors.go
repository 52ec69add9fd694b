// Package errors renders engine errors as JSON responses.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/campusdesk/internal/app/system/apperr"
	werrors "github.com/dalemusser/waffle/pantry/errors"
	"go.uber.org/zap"
)

// ErrorLogger writes {"message": "..."} bodies and logs server-side failures.
type ErrorLogger struct {
	Log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

type body struct {
	Message string `json:"message"`
}

// Render maps err to its HTTP status. Internal errors are logged with the
// request method, path and error code, and reported with a generic message.
func (e *ErrorLogger) Render(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.Status(err) >= http.StatusInternalServerError {
		e.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", werrors.CodeFromError(err)),
			zap.Error(err))
	}
	Write(w, err)
}

// BadRequest writes a 400 with msg.
func (e *ErrorLogger) BadRequest(w http.ResponseWriter, msg string) {
	Write(w, apperr.Validation(msg))
}

// Write renders err without logging. Middleware that has no ErrorLogger
// uses it for 401 and 403 responses.
func Write(w http.ResponseWriter, err error) {
	WriteJSON(w, apperr.Status(err), body{Message: apperr.Message(err)})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, body{Message: msg})
}
