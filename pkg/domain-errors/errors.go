// Package domainerrors provides coded errors for domain logic. Services
// wrap store sentinels with a code so transports can map outcomes to
// status codes without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and metrics.
type Code string

const (
	CodeBadRequest            Code = "bad_request"
	CodeNotFound              Code = "not_found"
	CodeConflict              Code = "conflict"
	CodeQuarantined           Code = "quarantined"
	CodeMonotonicityViolation Code = "monotonicity_violation"
	CodeCapReached            Code = "cap_reached"
	CodeUnavailable           Code = "unavailable"
	CodeInternal              Code = "internal_error"
)

// Error is a coded domain error. The message is safe to show callers
// except for CodeInternal, which transports should redact.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// New creates a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// CodeOf extracts the code from an error chain. Unknown errors report
// CodeInternal so nothing leaks by default.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from an error chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
