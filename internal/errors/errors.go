package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource or artifact was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeValidation indicates invalid client input.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeUpstream indicates an upstream service returned a failure.
	ErrCodeUpstream ErrorCode = "upstream"
	// ErrCodeRateLimited indicates an upstream service rejected the call with a rate limit.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeExtraction indicates structured content could not be extracted from model output.
	ErrCodeExtraction ErrorCode = "extraction"
	// ErrCodeJobState indicates a batch job reached a failed or canceled terminal state.
	ErrCodeJobState ErrorCode = "job_state"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError is a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// UpstreamStatus carries the HTTP status returned by an upstream service
	// (optional, only set for upstream errors)
	UpstreamStatus int
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

// Upstream creates a new Upstream error carrying the upstream HTTP status.
func Upstream(status int, message string) *AppError {
	return &AppError{Code: ErrCodeUpstream, Message: message, UpstreamStatus: status}
}

// Upstreamf creates a new Upstream error with formatted message.
func Upstreamf(status int, format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeUpstream, Message: fmt.Sprintf(format, args...), UpstreamStatus: status}
}

// RateLimited creates a new RateLimited error.
func RateLimited(message string) *AppError {
	return &AppError{Code: ErrCodeRateLimited, Message: message}
}

// Extraction creates a new Extraction error.
func Extraction(message string) *AppError {
	return &AppError{Code: ErrCodeExtraction, Message: message}
}

// Extractionf creates a new Extraction error with formatted message.
func Extractionf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeExtraction, Message: fmt.Sprintf(format, args...)}
}

// JobState creates a new JobState error.
func JobState(message string) *AppError {
	return &AppError{Code: ErrCodeJobState, Message: message}
}

// JobStatef creates a new JobState error with formatted message.
func JobStatef(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeJobState, Message: fmt.Sprintf(format, args...)}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: fmt.Sprintf(format, args...)}
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
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsUpstream checks if an error is an Upstream error.
func IsUpstream(err error) bool { return isCode(err, ErrCodeUpstream) }

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool { return isCode(err, ErrCodeRateLimited) }

// IsExtraction checks if an error is an Extraction error.
func IsExtraction(err error) bool { return isCode(err, ErrCodeExtraction) }

// IsJobState checks if an error is a JobState error.
func IsJobState(err error) bool { return isCode(err, ErrCodeJobState) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetUpstreamStatus returns the upstream HTTP status from an error, or 0.
func GetUpstreamStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.UpstreamStatus
	}
	return 0
}
