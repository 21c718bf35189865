// Package errors provides the standardized error taxonomy for catalog and
// recommendation failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Provider-facing errors (Steam catalog).
	ErrCodeProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidPayload      ErrorCode = "INVALID_PAYLOAD"

	// Persistence errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	// Engine errors.
	ErrCodeProfileInvalid ErrorCode = "PROFILE_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewProviderUnavailableError creates a retryable provider connectivity error.
func NewProviderUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   "Catalog provider unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a retryable rate-limit error.
func NewRateLimitedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Catalog provider rate limited the request",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable unknown-id error.
func NewNotFoundError(gameID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Game not known to the catalog provider",
		Details:   fmt.Sprintf("gameId: %s", gameID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPayloadError creates a non-retryable payload validation error.
func NewInvalidPayloadError(gameID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPayload,
		Message:   "Catalog payload failed schema validation",
		Details:   fmt.Sprintf("gameId: %s, %s", gameID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileInvalidError creates a non-retryable profile construction error.
func NewProfileInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileInvalid,
		Message:   "User profile data is malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderUnavailable,
		ErrCodeRateLimited,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed:
		return 3

	default:
		return 0 // NOT_FOUND, INVALID_PAYLOAD, PROFILE_INVALID: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}
