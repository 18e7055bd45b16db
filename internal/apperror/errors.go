// Package apperror provides domain-specific error types for the widget
// server. These errors carry an HTTP status code and a user-safe message.
// The Echo error handler and the widget views map them to responses.
//
// NEVER return raw platform or infrastructure errors to the client. Always
// wrap them in an apperror type or return a generic internal error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error types surfaced by the timeline widget.
const (
	TypeNotFound       = "not_found"
	TypeBadRequest     = "bad_request"
	TypeUnauthorized   = "unauthorized"
	TypeForbidden      = "forbidden"
	TypeValidation     = "validation_error"
	TypeInternal       = "internal_error"
	TypeMissingValue   = "missing_value"
	TypeSchemaMismatch = "schema_mismatch"
	TypeWriteRejected  = "write_rejected"
	TypeUpstream       = "upstream_error"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for common error types ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeUnauthorized,
		Message: message,
	}
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Type:    TypeForbidden,
		Message: message,
	}
}

// NewValidation creates a 422 Unprocessable Entity error for validation failures.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeValidation,
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// NewMissingValue reports an empty or unreadable parent timeline. Blocking:
// only fixing the board data clears it.
func NewMissingValue(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeMissingValue,
		Message: message,
	}
}

// NewSchemaMismatch reports a configured column id that the board does not
// carry. Surfaced exactly like NewMissingValue.
func NewSchemaMismatch(columnID string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeSchemaMismatch,
		Message: fmt.Sprintf("Timeline column %q was not found on this board", columnID),
	}
}

// NewWriteRejected reports a failed column write. The platform's reason is
// kept in Internal.
func NewWriteRejected(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadGateway,
		Type:     TypeWriteRejected,
		Message:  "The timeline could not be saved. Please try again.",
		Internal: err,
	}
}

// NewUpstream reports a failed platform read.
func NewUpstream(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadGateway,
		Type:     TypeUpstream,
		Message:  "The board could not be loaded. Please try again.",
		Internal: err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

// IsBlocking reports whether err halts rendering of the subitem cards.
func IsBlocking(err error) bool {
	return IsType(err, TypeMissingValue) || IsType(err, TypeSchemaMismatch)
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
