// Package errors provides structured error types for the tilelayout engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and inspect API
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Rejected input (trees, wire messages, configuration)
//   - UNKNOWN_*: Lookups of outputs or windows the engine does not track
//   - CHANNEL_CLOSED, TIMEOUT: Transient failures of the layout client
//   - UNAVAILABLE: A size memory backend could not be reached
//   - INTERNAL, UNSUPPORTED: Unexpected internal errors
//
// None of these conditions is fatal to the compositor. Callers degrade to
// keeping the last good layout.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidProportion, "node %s has proportion %v", path, p)
//	if errors.Is(err, errors.ErrCodeInvalidProportion) {
//	    // Reject the tree and keep the previous geometry
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidMessage, origErr, "decode tree response")
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
	ErrCodeInvalidTree       Code = "INVALID_TREE"
	ErrCodeInvalidProportion Code = "INVALID_PROPORTION"
	ErrCodeZeroProportionSum Code = "ZERO_PROPORTION_SUM"
	ErrCodeInvalidMessage    Code = "INVALID_MESSAGE"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"

	// Lookup errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeUnknownOutput Code = "UNKNOWN_OUTPUT"
	ErrCodeUnknownWindow Code = "UNKNOWN_WINDOW"

	// Layout client errors
	ErrCodeChannelClosed Code = "CHANNEL_CLOSED"
	ErrCodeTimeout       Code = "TIMEOUT"

	// Size memory backend errors
	ErrCodeUnavailable Code = "UNAVAILABLE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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
// It walks the whole error tree, including errors joined with
// errors.Join or wrapped together by fmt.Errorf, looking for an *Error
// with a matching code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Is(inner, code) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Is(u.Unwrap(), code)
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

// IsTransient reports whether err describes a condition that is expected
// to clear on its own, such as a closed channel or an unreachable backend.
func IsTransient(err error) bool {
	return Is(err, ErrCodeChannelClosed) || Is(err, ErrCodeTimeout) || Is(err, ErrCodeUnavailable)
}
