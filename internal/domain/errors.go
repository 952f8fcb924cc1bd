package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AppError represents a domain-specific error with structured information and enhanced context
type AppError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Cause      error     `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// requestIDKeys are the context keys a request id may live under: fiber's
// requestid middleware stores it as "requestid" on the fasthttp context
var requestIDKeys = []string{"requestid", "request_id"}

// WithContext records the operation and, when ctx carries one, the request id
func (e *AppError) WithContext(ctx context.Context, operation string) *AppError {
	e.Operation = operation
	if ctx == nil {
		return e
	}
	for _, key := range requestIDKeys {
		if id, ok := ctx.Value(key).(string); ok && id != "" {
			e.RequestID = id
			break
		}
	}
	return e
}

// Error codes for different error categories
const (
	ErrInvalidInput     = "INVALID_INPUT"     // 400 Bad Request
	ErrValidationFailed = "VALIDATION_FAILED" // 422 Unprocessable Entity
	ErrNotFound         = "NOT_FOUND"         // 404 Not Found
	ErrConflict         = "CONFLICT"          // 409 Conflict
	ErrInternal         = "INTERNAL_ERROR"    // 500 Internal Server Error
	ErrTimeout          = "TIMEOUT"           // 408 Request Timeout
	ErrTooLarge         = "PAYLOAD_TOO_LARGE" // 413 Payload Too Large
	ErrRateLimit        = "RATE_LIMIT"        // 429 Too Many Requests

	// Engine-specific error codes
	ErrNoMatchingRule  = "NO_MATCHING_RULE" // 422 no rule accepts the source/target combination
	ErrUnknownStrategy = "UNKNOWN_STRATEGY" // 500 rule table references an unimplemented strategy
	ErrTooManyBlocks   = "TOO_MANY_BLOCKS"  // 422 bulk limit exceeded
	ErrApplyFailed     = "APPLY_FAILED"     // 409 change list does not fit the document
)

// NewAppError creates a new AppError with the specified parameters
func NewAppError(code, message string, statusCode int, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

// NewAppErrorWithCause creates a new AppError with underlying cause
func NewAppErrorWithCause(code, message string, statusCode int, cause error, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// NewValidationError is shorthand for a 422 VALIDATION_FAILED error
func NewValidationError(message string, details any) *AppError {
	return NewAppError(ErrValidationFailed, message, 422, details)
}

// ErrorMessage returns the human-readable message of err, without the code prefix for AppErrors
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// ErrorCode returns the AppError code of err, or ErrInternal
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool {
	return ErrorCode(err) == ErrTimeout
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return ErrorCode(err) == ErrNotFound
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	switch ErrorCode(err) {
	case ErrValidationFailed, ErrNoMatchingRule, ErrTooManyBlocks:
		return true
	}
	return false
}
