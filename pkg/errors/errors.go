// Package errors provides structured error types for the ipkey plugin.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the driver, CLI, and status API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - NETWORK_*: Network-related errors
//   - HOST_*: Stream-deck host protocol errors
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidAddress, "not an IPv4 address: %s", body)
//	if errors.Is(err, errors.ErrCodeInvalidAddress) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetching %s", url)
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
	ErrCodeInvalidMode     Code = "INVALID_MODE"
	ErrCodeInvalidAddress  Code = "INVALID_ADDRESS"
	ErrCodeInvalidProvider Code = "INVALID_PROVIDER"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidSettings Code = "INVALID_SETTINGS"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeBadResponse Code = "BAD_RESPONSE"
	ErrCodeTimeout     Code = "TIMEOUT"

	// Host and device errors
	ErrCodeHostProtocol Code = "HOST_PROTOCOL"
	ErrCodeClipboard    Code = "CLIPBOARD_COMMAND"

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

// CommandError reports a failed clipboard helper invocation with enough
// detail to diagnose a missing or broken system utility.
type CommandError struct {
	Command string // Helper binary, e.g. "xclip"
	Stderr  string // Trailing stderr output, if any
	Cause   error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("clipboard command %s failed: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("clipboard command %s failed: %v", e.Command, e.Cause)
}

// Unwrap returns the underlying process error.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Code returns the error code for this error type.
func (e *CommandError) Code() Code {
	return ErrCodeClipboard
}
