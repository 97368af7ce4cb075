// Package errors provides structured error types for algoviz.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the stores
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NOT_FOUND*: Resource not found
//   - UNSUPPORTED: Unknown backend or format
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidTransition, "cannot pause from %s", status)
//	if errors.Is(err, errors.ErrCodeInvalidTransition) {
//	    // Reject the command
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeState, origErr, "read status")
//
// Routine failures inside a controller run are deliberately not represented
// here: they are captured into the run log and never surface as errors.
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidScenario   Code = "INVALID_SCENARIO"
	ErrCodeInvalidFormat     Code = "INVALID_FORMAT"
	ErrCodeInvalidCommand    Code = "INVALID_COMMAND"
	ErrCodeInvalidTransition Code = "INVALID_TRANSITION"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"

	// Conflicts
	ErrCodeRunInProgress Code = "RUN_IN_PROGRESS"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeRunNotFound  Code = "RUN_NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Backend errors
	ErrCodeState       Code = "STATE_ERROR"
	ErrCodeStorage     Code = "STORAGE_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error code to the HTTP status the API responds with.
// Errors without a code map to 500.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidScenario, ErrCodeInvalidFormat, ErrCodeInvalidCommand, ErrCodeInvalidConfig:
		return 400
	case ErrCodeNotFound, ErrCodeRunNotFound, ErrCodeFileNotFound:
		return 404
	case ErrCodeInvalidTransition, ErrCodeRunInProgress:
		return 409
	case ErrCodeUnsupported:
		return 501
	default:
		return 500
	}
}
