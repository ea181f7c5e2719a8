package balancer

import (
	"errors"
	"fmt"
)

// Error is the module-wide failure type. Every failure crossing a subsystem
// boundary is classified under one of the codes below so callers can turn it
// into a user-visible notification without inspecting the cause chain.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Failure classification codes.
const (
	// ErrCodeNetwork covers HTTP non-2xx responses and transport failures
	// against the backend.
	ErrCodeNetwork = "network_failure"

	// ErrCodeContractCall covers simulation reverts, submission rejections
	// and failed transaction receipts.
	ErrCodeContractCall = "contract_call_failed"

	// ErrCodeValidation covers client-side rejections before any network or
	// contract call (duplicate wallets, non-positive amounts).
	ErrCodeValidation = "validation_failed"

	// ErrCodeRegistration covers unregistered users or incomplete profiles.
	ErrCodeRegistration = "registration_incomplete"
)

// NewError creates a classified error without a cause.
func NewError(code, message string, details map[string]interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// WrapError classifies an underlying error.
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf returns the classification code of err, or "" if err carries none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsValidation reports whether err is a client-side validation rejection,
// meaning no network or contract call was made.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}
