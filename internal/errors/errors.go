// Package errors provides typed error definitions for keepwarm.
// Every failure surfaced to a user carries a Code, a human readable Message
// and, where one exists, a Hint naming the next command to run.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Instance lifecycle errors
	ErrAlreadyRunning      ErrorCode = "ALREADY_RUNNING"
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrNotRunning          ErrorCode = "NOT_RUNNING"
	ErrLaunchFailed        ErrorCode = "LAUNCH_FAILED"
	ErrPortDiscoveryFailed ErrorCode = "PORT_DISCOVERY_FAILED"
	ErrStopFailed          ErrorCode = "STOP_FAILED"
	ErrExecFailed          ErrorCode = "EXEC_FAILED"

	// Environment errors
	ErrCredentialUnavailable ErrorCode = "CREDENTIAL_UNAVAILABLE"
	ErrRuntimeUnavailable    ErrorCode = "RUNTIME_UNAVAILABLE"

	// State errors
	ErrStateCorrupt ErrorCode = "STATE_CORRUPT"
	ErrStateIO      ErrorCode = "STATE_IO"

	// Configuration errors
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrConfigParse   ErrorCode = "CONFIG_PARSE"

	// Validation errors
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrInvalidPort  ErrorCode = "INVALID_PORT"

	// Database errors
	ErrDatabase ErrorCode = "DATABASE"

	// Internal errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// Context keys used by the constructors in common.go
const (
	ContextReason   = "reason"
	ContextInstance = "instance"
	ContextLogs     = "logs"
)

// KeepwarmError represents a structured error with additional context
type KeepwarmError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Hint       string                 `json:"hint,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *KeepwarmError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *KeepwarmError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a KeepwarmError with the same code
func (e *KeepwarmError) Is(target error) bool {
	t, ok := target.(*KeepwarmError)
	return ok && t.Code == e.Code
}

// UserMessage renders the error for a terminal: message, details, cause and hint
func (e *KeepwarmError) UserMessage() string {
	msg := e.Message
	if e.Details != "" {
		msg += "\n  " + e.Details
	}
	if e.Cause != nil {
		msg += "\n  cause: " + e.Cause.Error()
	}
	if e.Hint != "" {
		msg += "\n\nTip: " + e.Hint
	}
	return msg
}

// WithContext adds context information to the error
func (e *KeepwarmError) WithContext(key string, value interface{}) *KeepwarmError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause adds the underlying cause error
func (e *KeepwarmError) WithCause(cause error) *KeepwarmError {
	e.Cause = cause
	return e
}

// WithHint sets the suggested next action
func (e *KeepwarmError) WithHint(format string, args ...interface{}) *KeepwarmError {
	e.Hint = fmt.Sprintf(format, args...)
	return e
}

// GetHTTPStatus returns the appropriate HTTP status code for this error
func (e *KeepwarmError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}

	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput, ErrInvalidPort, ErrConfigInvalid:
		return http.StatusBadRequest
	case ErrAlreadyRunning, ErrNotRunning:
		return http.StatusConflict
	case ErrRuntimeUnavailable, ErrCredentialUnavailable:
		return http.StatusServiceUnavailable
	case ErrPortDiscoveryFailed:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new KeepwarmError
func New(code ErrorCode, message string) *KeepwarmError {
	return &KeepwarmError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new KeepwarmError with details
func NewWithDetails(code ErrorCode, message, details string) *KeepwarmError {
	return &KeepwarmError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new KeepwarmError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *KeepwarmError {
	return &KeepwarmError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new KeepwarmError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *KeepwarmError {
	return &KeepwarmError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// As finds the first KeepwarmError in err's chain
func As(err error) (*KeepwarmError, bool) {
	var ke *KeepwarmError
	if stderrors.As(err, &ke) {
		return ke, true
	}
	return nil, false
}

// IsKeepwarmError checks if an error is, or wraps, a KeepwarmError
func IsKeepwarmError(err error) bool {
	_, ok := As(err)
	return ok
}

// GetCode extracts the error code from an error, if it's a KeepwarmError
func GetCode(err error) ErrorCode {
	if ke, ok := As(err); ok {
		return ke.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetHTTPStatus maps any error to an HTTP status code
func GetHTTPStatus(err error) int {
	if ke, ok := As(err); ok {
		return ke.GetHTTPStatus()
	}
	return http.StatusInternalServerError
}

// Reason returns the failure sub-reason recorded on err, if any
func Reason(err error) string {
	ke, ok := As(err)
	if !ok || ke.Context == nil {
		return ""
	}
	reason, _ := ke.Context[ContextReason].(string)
	return reason
}
