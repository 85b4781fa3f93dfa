// Package domainerrors defines the coded error taxonomy shared by services,
// stores, and transport. Handlers translate codes to HTTP statuses in one
// place; services attach codes at the point where the failure is understood.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. The set is closed: callers switch on
// codes, so adding one means updating ToHTTPStatus as well.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeValidation            Code = "validation"
	CodeInvalidInput          Code = "invalid_input"
	CodeInvalidInstallment    Code = "invalid_installment"
	CodeInvalidTransition     Code = "invalid_transition"
	CodeMissingPaymentDetails Code = "missing_payment_details"
	CodeNotEligible           Code = "not_eligible"
	CodeAlreadyPaid           Code = "already_paid"
	CodeUnauthorized          Code = "unauthorized"
	CodeForbidden             Code = "forbidden"
	CodeConflict              Code = "conflict"
	CodeInvariantViolation    Code = "invariant_violation"
	CodeTimeout               Code = "timeout"
	CodeInternal              Code = "internal"
)

// Error carries a code and a human-readable message. It wraps an optional
// cause so errors.Is/As keep working through service layers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the code carried by err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the message carried by err, or a generic one.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to the HTTP status handlers should respond with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeInvalidInput, CodeInvalidInstallment,
		CodeInvalidTransition, CodeMissingPaymentDetails,
		CodeNotEligible, CodeAlreadyPaid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
