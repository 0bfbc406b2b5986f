package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide whether to retry,
// fall back, or give up.
type ErrorType string

const (
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeNormalization ErrorType = "normalization"
	ErrorTypeExhausted     ErrorType = "exhausted"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents a typed scraper error. Code carries the HTTP status
// when the error originated from a response, zero otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error.
func New(t ErrorType, message string, code int) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// IsRetryable reports whether an error type is worth retrying locally.
// Terminal types escalate straight to the next fallback layer.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether an error is worth retrying locally.
// Untyped errors count as retryable; only a typed terminal
// classification stops the attempts.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return IsRetryable(typed.Type)
	}
	return true
}

// IsRetryableStatusCode reports whether an HTTP status indicates a
// transient condition.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error, no response
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// FromStatusCode maps an HTTP status to a typed error.
func FromStatusCode(statusCode int, message string) *Error {
	var t ErrorType
	switch {
	case statusCode == 429:
		t = ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		t = ErrorTypeAuth
	case statusCode == 404:
		t = ErrorTypeNotFound
	case statusCode >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	return &Error{Type: t, Message: message, Code: statusCode}
}
