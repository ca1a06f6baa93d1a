// Package apperr classifies failures returned by the lifecycle services so the
// HTTP layer can map them to status codes in a single place.
package apperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is the category of a failure
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation_failure"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a classified failure with a message safe to show to callers
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Cause returns the wrapped error, if any
func (e *Error) Cause() error {
	return e.cause
}

// Unwrap supports errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity
func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

// Forbidden reports an ownership or role mismatch
func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

// Unauthorized reports missing or invalid credentials
func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

// InvalidState reports an action not permitted in the entity's current status
func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

// Validation reports malformed input
func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// Conflict reports a duplicate natural key
func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// Internal wraps an unexpected failure behind a generic message
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: err}
}

// KindOf returns the kind of err, defaulting to KindInternal for
// unclassified errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
