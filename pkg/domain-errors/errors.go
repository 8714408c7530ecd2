// Package domainerrors provides coded errors for the escrow engine.
//
// Services return these so transports can translate failures into specific,
// actionable responses without string matching. Stores return
// pkg/platform/sentinel errors; services translate them here at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure kind. Every mutating operation fails with exactly
// one of these and performs no state change.
type Code string

const (
	// Cross-cutting codes.
	CodeUnauthorized       Code = "unauthorized"
	CodeInvalidInput       Code = "invalid_input"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal"
	CodeInvariantViolation Code = "ledger_invariant_violation"

	// Identity registry.
	CodeDuplicateIdentity Code = "duplicate_identity"
	CodeDuplicateHandle   Code = "duplicate_handle"
	CodeAccountNotFound   Code = "account_not_found"

	// Verification ledger.
	CodeIdentityMismatch Code = "identity_mismatch"

	// Fund pool accounting.
	CodePoolNotFound      Code = "pool_not_found"
	CodeInvalidCapacity   Code = "invalid_capacity"
	CodeShareTooSmall     Code = "share_too_small"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeTransferFailed    Code = "transfer_failed"

	// Claim processor.
	CodeNotEligible       Code = "not_eligible"
	CodeAlreadyClaimed    Code = "already_claimed"
	CodeCapacityExhausted Code = "capacity_exhausted"
)

// Error carries a code, a human-readable message, and an optional cause.
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

// Is lets errors.Is match two coded errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New builds a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
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

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to an HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidInput, CodeInvalidCapacity, CodeShareTooSmall:
		return http.StatusBadRequest
	case CodeAccountNotFound, CodePoolNotFound:
		return http.StatusNotFound
	case CodeDuplicateIdentity, CodeDuplicateHandle, CodeConflict,
		CodeAlreadyClaimed, CodeIdentityMismatch:
		return http.StatusConflict
	case CodeNotEligible, CodeCapacityExhausted, CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case CodeTransferFailed:
		return http.StatusBadGateway
	case CodeInvariantViolation:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
