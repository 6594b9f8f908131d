// Package domainerrors provides coded errors that cross module boundaries.
// Services wrap infrastructure sentinels into these so transport layers can
// map them onto HTTP statuses without inspecting store internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and the HTTP layer.
type Code string

const (
	// CodeValidation marks recoverable input problems the caller must fix.
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks malformed caller-facing payloads, including
	// identifier strings that fail to decode.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks lookups for entities that do not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks explicit-serial collisions. The caller may pick a
	// different serial or fall back to auto-allocation.
	CodeConflict Code = "conflict"

	// CodeUnavailable marks transient storage failures. Retryable with
	// backoff by the caller; the core never retries internally.
	CodeUnavailable Code = "storage_unavailable"

	// CodeExhausted marks a partition whose serial space is spent. Fatal for
	// that partition and a capacity planning signal for the operator.
	CodeExhausted Code = "partition_exhausted"

	// CodeUnauthorized marks missing or invalid admin credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeInternal marks unexpected failures. Details are logged, never
	// returned to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// GetCode extracts the outermost code, defaulting to CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto its HTTP response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeExhausted:
		return http.StatusInsufficientStorage
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
