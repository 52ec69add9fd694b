// Package apperr builds the typed errors returned by the domain engines on
// top of waffle's pantry/errors.
//
// Every constructor returns a *errors.Error carrying its HTTP status, and
// handlers render it in one place (features/errors). Engines never write
// responses themselves.
package apperr

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/waffle/pantry/errors"
)

// Kind classifies an error for callers that branch on it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindUnauthenticated
	KindConflict
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// internalMessage is what clients see for any 5xx.
const internalMessage = "internal server error"

func Validation(msg string) *errors.Error      { return errors.Validation(msg) }
func NotFound(msg string) *errors.Error        { return errors.NotFound(msg) }
func Forbidden(msg string) *errors.Error       { return errors.Forbidden(msg) }
func Unauthenticated(msg string) *errors.Error { return errors.Unauthorized(msg) }
func Conflict(msg string) *errors.Error        { return errors.Conflict(msg) }
func TooManyRequests(msg string) *errors.Error { return errors.TooManyRequests(msg) }

// Internal wraps an unexpected failure. The client sees a generic message.
func Internal(err error) *errors.Error {
	return errors.Wrap(err, errors.CodeInternalError, internalMessage, http.StatusInternalServerError)
}

// KindOf returns the Kind of err, or KindInternal if err is not an
// *errors.Error with a client status.
func KindOf(err error) Kind {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return KindInternal
	}
	switch e.HTTPStatus() {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusUnauthorized:
		return KindUnauthenticated
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}

// Status returns the HTTP status for err. Unclassified errors are 500.
func Status(err error) int {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus()
}

// Message returns the client-safe message for err. Anything reported as a
// 5xx gets the generic message.
func Message(err error) string {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.HTTPStatus() >= http.StatusInternalServerError {
		return internalMessage
	}
	return e.Message
}
