package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the library.
type ErrorCode string

const (
	// ErrValidationFailed is a candidate failing one or more schema rules.
	// Recovered locally: it feeds the reask loop.
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrExtractionFailed means no parseable structured payload was found
	// in the response. Treated as a validation failure for retry purposes.
	ErrExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// ErrTruncated means the provider hit a length or token limit
	// mid-generation. Terminal: retrying reproduces the same truncation.
	ErrTruncated ErrorCode = "TRUNCATED"

	// ErrRetriesExhausted means the retry budget disallowed a further
	// attempt after a validation failure.
	ErrRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"

	// ErrProviderCall means the provider-call collaborator itself failed
	// (network, auth, rate limit). Not retried by this library.
	ErrProviderCall ErrorCode = "PROVIDER_CALL_FAILED"

	// ErrInvalidRequest means the caller supplied an unusable contract,
	// mode, or conversation.
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Coder is implemented by error types outside this package that carry
// a unified error code without being an *Error.
type Coder interface {
	Code() ErrorCode
}

// IsRetryable checks if any error in the chain is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain. Wrapper
// types implementing Coder report their own code.
func GetErrorCode(err error) ErrorCode {
	var coded Coder
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
