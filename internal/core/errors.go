package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Agent or stream failure
	ErrCatState      ErrorCategory = "state"      // Operation not allowed in current state
	ErrCatNetwork    ErrorCategory = "network"    // Remote agent unreachable
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError by category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatState,
		Code:     code,
		Message:  message,
	}
}

// ErrNetwork creates a network error.
func ErrNetwork(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatNetwork,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// GetCode extracts the error code, or "" for non-domain errors.
func GetCode(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return ""
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	// Validation error codes
	CodeEmptyQuery    = "EMPTY_QUERY"
	CodeQueryTooLong  = "QUERY_TOO_LONG"
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeScriptInvalid = "SCRIPT_INVALID"

	// State error codes
	CodeSessionBusy = "SESSION_BUSY"

	// Execution error codes
	CodeAgentStreamFailed = "AGENT_STREAM_FAILED"
	CodeAgentPanicked     = "AGENT_PANICKED"
	CodeExportFailed      = "EXPORT_FAILED"

	// Network error codes
	CodeUpstreamStatus = "UPSTREAM_STATUS"
)

// MaxQueryLength is the maximum allowed query length in runes.
const MaxQueryLength = 16000
