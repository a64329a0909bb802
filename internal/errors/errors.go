// Package errors provides the structured application error type and the error
// taxonomy used across the export system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid input data, including malformed
	// recurrence expressions rejected at save/load.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeConflict indicates a conflict with existing data.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled by its context.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeUnauthorized indicates an authorization failure on a remote call.
	// The retry policy treats this code as retryable after a token refresh.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeRemote indicates a non-authorization remote call failure. It is
	// terminal for the run and never retried.
	ErrCodeRemote ErrorCode = "remote"
	// ErrCodeAborted indicates cooperative cancellation was observed at a
	// batch boundary.
	ErrCodeAborted ErrorCode = "aborted"
	// ErrCodeNoSession indicates the credential broker holds no cached
	// session and could not establish one.
	ErrCodeNoSession ErrorCode = "no_session"
	// ErrCodeMissingCredentials indicates a job carries no usable long-lived
	// credential and no service account is configured.
	ErrCodeMissingCredentials ErrorCode = "missing_credentials"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping for use with errors.Is/As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

// Remote creates a new Remote error.
func Remote(message string) *AppError {
	return &AppError{Code: ErrCodeRemote, Message: message}
}

// Remotef creates a new Remote error with formatted message.
func Remotef(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeRemote, Message: fmt.Sprintf(format, args...)}
}

// Aborted creates a new Aborted error.
func Aborted(message string) *AppError {
	return &AppError{Code: ErrCodeAborted, Message: message}
}

// NoSession creates a new NoSession error.
func NoSession(message string) *AppError {
	return &AppError{Code: ErrCodeNoSession, Message: message}
}

// MissingCredentials creates a new MissingCredentials error.
func MissingCredentials(message string) *AppError {
	return &AppError{Code: ErrCodeMissingCredentials, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool {
	return isCode(err, ErrCodeUnauthorized)
}

// IsAborted checks if an error is an Aborted error.
func IsAborted(err error) bool {
	return isCode(err, ErrCodeAborted)
}

// IsNoSession checks if an error is a NoSession error.
func IsNoSession(err error) bool {
	return isCode(err, ErrCodeNoSession)
}

// IsMissingCredentials checks if an error is a MissingCredentials error.
func IsMissingCredentials(err error) bool {
	return isCode(err, ErrCodeMissingCredentials)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
