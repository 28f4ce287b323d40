// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, horizons, identifiers
//   - Store errors (200-299): Artifact lookup, read and write failures
//   - Artifact content errors (300-399): Schema, column and length problems
//   - Forecast errors (400-499): Model fitting, projection and prediction errors
//   - Fetch errors (500-599): Remote data acquisition failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeArtifactNotFound, "artifact %s not found", id)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeStoreReadFailed, "failed to read artifact", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeNoNewData) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsNoNewData reports whether an error is the no-new-data skip signal.
// The signal is not a failure; callers should skip the invocation cleanly.
func IsNoNewData(err error) bool {
	return HasCode(err, ErrCodeNoNewData)
}

// LengthMismatchError represents an error when parallel series of an artifact
// disagree in length (e.g. prices vs market caps vs volumes).
type LengthMismatchError struct {
	Column   string // Offending column name
	Expected int    // Length of the timestamp column
	Actual   int    // Length of the offending column
	Message  string // Human-readable message
}

// NewLengthMismatchError creates a new LengthMismatchError.
func NewLengthMismatchError(column string, expected, actual int, message string) *LengthMismatchError {
	return &LengthMismatchError{
		Column:   column,
		Expected: expected,
		Actual:   actual,
		Message:  message,
	}
}

// NewLengthMismatchErrorf creates a new LengthMismatchError with a formatted message.
func NewLengthMismatchErrorf(column string, expected, actual int, format string, args ...any) *LengthMismatchError {
	return &LengthMismatchError{
		Column:   column,
		Expected: expected,
		Actual:   actual,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *LengthMismatchError) Error() string {
	return e.Message
}

// IsLengthMismatchError checks if an error is a LengthMismatchError.
// It uses errors.As to check the error chain.
func IsLengthMismatchError(err error) bool {
	var mismatchErr *LengthMismatchError

	return errors.As(err, &mismatchErr)
}
