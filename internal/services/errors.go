package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Sentinel kinds. Every *Error unwraps to exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// Error is a domain error carrying a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

// Error returns the caller-facing message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound reports a missing entity (HTTP 404).
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// Conflict reports a state clash such as an unavailable book or a duplicate email (HTTP 409).
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// Forbidden reports an actor lacking permission for the operation (HTTP 403).
func Forbidden(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// Validation reports malformed or out-of-range input (HTTP 400).
func Validation(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err wraps ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsForbidden reports whether err wraps ErrForbidden.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsValidation reports whether err wraps ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error with message
// and returns any other error unchanged.
func notFoundOr(err error, message string) error {
	if isRecordNotFound(err) {
		return NotFound(message)
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
