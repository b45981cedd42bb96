// Package domainerrors defines the error taxonomy shared across the engine.
//
// Every error that crosses a package boundary carries a machine-readable Code
// plus a short, stable message suitable for operator display. Handlers map
// codes to HTTP statuses without inspecting error text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies an error kind.
type Code string

const (
	// CodeValidation marks a field or tuple that fails a regulatory rule.
	CodeValidation Code = "validation_error"

	// CodeInvariantViolation marks a mutation that would break an aggregate
	// invariant. Treated as fatal for the current operation.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeIllegalTransition marks a state-machine transition whose
	// preconditions are not met. The message lists what is missing.
	CodeIllegalTransition Code = "illegal_transition"

	// CodeImmutableAuditLog marks an attempt to update or delete an audit
	// entry. This is a programmer error and is surfaced loudly.
	CodeImmutableAuditLog Code = "immutable_audit_log_violation"

	// CodeDeadlineMissed marks a regulatory filing window that has closed.
	CodeDeadlineMissed Code = "deadline_missed"

	// CodeConflict marks two concurrent mutations of the same shipment.
	CodeConflict Code = "conflict"

	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"

	// Adapter codes mirror the Lloyd's Register failure taxonomy.
	CodeAdapterTimeout      Code = "adapter_timeout"
	CodeAdapterHTTP         Code = "adapter_http"
	CodeAdapterMalformed    Code = "adapter_malformed"
	CodeAdapterUnauthorized Code = "adapter_unauthorized"
	CodeAdapterRateLimited  Code = "adapter_rate_limited"
)

// Error is the concrete error type carried across boundaries.
type Error struct {
	Code    Code
	Message string
	// Field holds the field path for validation errors, empty otherwise.
	Field string
	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an error with a code and a stable message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewField builds a validation error attached to a field path.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a convenience alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from an error, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf extracts the field path from a validation error, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
