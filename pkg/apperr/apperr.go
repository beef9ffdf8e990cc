// Package apperr carries the error taxonomy shared by services and handlers.
// Services return *Error values; handlers turn the Kind into an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	NotFound
	Unauthorized
	Forbidden
	TooManyRequests
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case TooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error codes sent to clients alongside the message.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeMissingFields       = "MISSING_FIELDS"
	CodeInvalidOTP          = "INVALID_OTP"
	CodeConflict            = "CONFLICT"
	CodeRoomUnavailable     = "ROOM_UNAVAILABLE"
	CodeDuplicateAccount    = "DUPLICATE_ACCOUNT"
	CodeNotFound            = "NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeForbidden           = "FORBIDDEN"
	CodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	CodeIdempotencyMismatch = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal            = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind and Code so callers can compare against templates.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func NewValidation(message string) *Error {
	return New(Validation, CodeInvalidInput, message)
}

func NewConflict(message string) *Error {
	return New(Conflict, CodeConflict, message)
}

func NewNotFound(message string) *Error {
	return New(NotFound, CodeNotFound, message)
}

func NewUnauthorized(message string) *Error {
	return New(Unauthorized, CodeUnauthorized, message)
}

func NewForbidden(message string) *Error {
	return New(Forbidden, CodeForbidden, message)
}

// NewInternal hides err behind a generic message; the cause is logged by the handler.
func NewInternal(err error) *Error {
	return Wrap(Internal, CodeInternal, "Internal server error", err)
}

// KindOf returns Internal for anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
