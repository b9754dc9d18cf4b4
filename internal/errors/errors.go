// Package errors defines the structured application error type and the
// error taxonomy the retry and notification layers key off.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found (or not visible to
	// the acting user).
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates an idempotency-critical re-run of an already
	// terminal transition, e.g. completing an already-completed job.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input, rejected before any
	// external call.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeRateLimited indicates the remote API rejected the call for rate
	// limiting. Transient: retryable with backoff.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeUnavailable indicates a transient remote failure (5xx,
	// connection reset, temporary outage). Retryable with backoff.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeTimeout indicates the call exceeded its deadline. Retryable.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeExternal indicates a terminal remote error (auth failure,
	// malformed response, non-retryable 4xx). Never retried.
	ErrCodeExternal ErrorCode = "external"
	// ErrCodeCanceled indicates the operation was canceled by the caller.
	ErrCodeCanceled ErrorCode = "canceled"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError is a structured application error with a code, message, and
// optional cause. It supports errors.Is and errors.As through Unwrap.
type AppError struct {
	// Code categorizes the error type.
	Code ErrorCode
	// Message is a human-readable error message.
	Message string
	// Cause is the underlying error, if any.
	Cause error
	// Field names the offending field for validation errors.
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new not-found error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new not-found error with a formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a new conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Conflictf creates a new conflict error with a formatted message.
func Conflictf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// RateLimited creates a new rate-limited error.
func RateLimited(message string) *AppError {
	return &AppError{Code: ErrCodeRateLimited, Message: message}
}

// Unavailable creates a new transient-unavailable error.
func Unavailable(message string) *AppError {
	return &AppError{Code: ErrCodeUnavailable, Message: message}
}

// External creates a new terminal external error.
func External(message string) *AppError {
	return &AppError{Code: ErrCodeExternal, Message: message}
}

// Internal creates a new internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
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

// isCode checks if an error carries a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsRateLimited checks if an error is a rate-limited error.
func IsRateLimited(err error) bool {
	return isCode(err, ErrCodeRateLimited)
}

// IsUnavailable checks if an error is a transient-unavailable error.
func IsUnavailable(err error) bool {
	return isCode(err, ErrCodeUnavailable)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// IsRetryable reports whether an error is classified transient-retryable:
// rate limit, transient unavailability, or timeout. Everything else is
// terminal and must propagate immediately.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err) || IsTimeout(err)
}

// GetCode returns the ErrorCode from an error, or empty string if the error
// is not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
