// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Errorf wraps base with a formatted cause.
func Errorf(base *Error, format string, args ...any) *Error {
	return WrapError(base, fmt.Errorf(format, args...))
}

// Predefined errors
var (
	// Construction errors
	ErrInvalidConfiguration   = &Error{Code: "INVALID_CONFIGURATION", Message: "invalid configuration"}
	ErrMissingParameter       = &Error{Code: "MISSING_PARAMETER", Message: "required parameter missing"}
	ErrStrategyNotImplemented = &Error{Code: "STRATEGY_NOT_IMPLEMENTED", Message: "strategy not implemented"}
	ErrNoStrategies           = &Error{Code: "NO_STRATEGIES", Message: "no strategies added"}

	// Data errors
	ErrMissingColumn    = &Error{Code: "MISSING_COLUMN", Message: "required column missing"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis"}
	ErrDataValidation   = &Error{Code: "DATA_VALIDATION", Message: "data validation failed"}

	// Provider errors
	ErrProvider = &Error{Code: "PROVIDER_ERROR", Message: "market data provider failed"}

	// Lookup errors
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "resource not found"}

	// Access errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
