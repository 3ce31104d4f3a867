// Package errors provides structured error types for the Cascade engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the planner, applier, and CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages carrying the offending identifier
//   - Error wrapping with cause-chain preservation
//
// # Error Codes
//
// Error codes map one-to-one onto the failure categories of the engine:
// parsing (versions, manifests, changesets), workspace discovery, graph
// validation, planning, and apply. Graph validation errors are reported
// rather than thrown; they exist as codes so front-ends can translate a
// report into a non-zero exit without string matching.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeParse, "invalid version %q", raw)
//	if errors.Is(err, errors.ErrCodeParse) {
//	    // Handle parse error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeManifestWrite, cause, "rewrite %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the engine's failure categories.
const (
	// Parsing errors (versions, manifests, changeset records)
	ErrCodeParse Code = "PARSE"

	// Workspace discovery errors
	ErrCodeDiscovery       Code = "DISCOVERY"
	ErrCodeDuplicate       Code = "DUPLICATE_PACKAGE"
	ErrCodeManagerNotFound Code = "MANAGER_NOT_FOUND"

	// Graph validation (informational; callers decide whether to proceed)
	ErrCodeGraphValidation Code = "GRAPH_VALIDATION"

	// Planning errors
	ErrCodePlanConflict     Code = "PLAN_CONFLICT"
	ErrCodeMissingTarget    Code = "PROPAGATION_MISSING_TARGET"
	ErrCodeRangeRefused     Code = "RANGE_UPDATE_REFUSED"
	ErrCodeDowngradeRefused Code = "DOWNGRADE_REFUSED"

	// Apply errors
	ErrCodeManifestWrite   Code = "MANIFEST_WRITE_FAILED"
	ErrCodeLockfileRefresh Code = "LOCKFILE_REFRESH_FAILED"
	ErrCodeStoreLocked     Code = "CHANGESET_STORE_LOCKED"

	// Cancellation and internal failures
	ErrCodeCancelled Code = "CANCELLED"
	ErrCodeInternal  Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code, an optional offending
// identifier (package name, file path, or specifier), and an optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Subject string // Offending identifier (optional)
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Subject != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Subject)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
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

// WithSubject returns a copy of the error annotated with the offending
// identifier (package name, file path, dependency specifier).
func (e *Error) WithSubject(subject string) *Error {
	dup := *e
	dup.Subject = subject
	return &dup
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
		if e.Subject != "" {
			return fmt.Sprintf("%s (%s)", e.Message, e.Subject)
		}
		return e.Message
	}
	return err.Error()
}
