// Package common defines shared constants and sentinel errors used across
// the server layers of Bodypace. Callers should use errors.Is to match these
// values; the concrete error types below unwrap to them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorConflict     = errors.New("conflict")

	// Storage errors. ErrInconsistentStorage means a blob and its catalog row
	// went out of sync and needs operator attention.
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInconsistentStorage = errors.New("inconsistent storage")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

var (
	ErrUsernameTaken = &kindError{msg: "username is taken", kind: ErrorConflict}
	ErrNameTaken     = &kindError{msg: "document name is taken", kind: ErrorConflict}

	// ErrInvalidCredentials is returned for every failed login, whatever the cause.
	ErrInvalidCredentials = &kindError{msg: "invalid username or password", kind: ErrorUnauthorized}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrorValidation }

// NotFoundError reports a document that does not exist for the given owner.
// A document owned by somebody else is reported the same way.
type NotFoundError struct {
	ID      int64
	OwnerID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown document id #%d or owner id #%d", e.ID, e.OwnerID)
}

func (e *NotFoundError) Unwrap() error { return ErrorNotFound }
