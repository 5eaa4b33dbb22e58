package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the closed error taxonomy of the gateway.
type ErrorCode string

const (
	ErrNetwork              ErrorCode = "NETWORK_ERROR"
	ErrTimeout              ErrorCode = "TIMEOUT_ERROR"
	ErrRateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrProvider             ErrorCode = "PROVIDER_ERROR"
	ErrAuthentication       ErrorCode = "AUTHENTICATION_ERROR"
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrModelNotFound        ErrorCode = "MODEL_NOT_FOUND"
	ErrInvalidModelResponse ErrorCode = "INVALID_MODEL_RESPONSE"
	ErrConfiguration        ErrorCode = "CONFIGURATION_ERROR"
	ErrRetryExhausted       ErrorCode = "RETRY_EXHAUSTED"
	ErrUnsupportedFeature   ErrorCode = "UNSUPPORTED_FEATURE"
	ErrCancelled            ErrorCode = "CANCELLED"
)

// retryableCodes drives the retry interceptor and failover routing.
// RateLimitExceeded is retryable after the suggested delay.
var retryableCodes = map[ErrorCode]bool{
	ErrNetwork:           true,
	ErrTimeout:           true,
	ErrRateLimitExceeded: true,
	ErrProvider:          true,
}

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Cause      error         `json:"-"`
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

// Retryable reports whether the error kind may be retried.
func (e *Error) Retryable() bool {
	return retryableCodes[e.Code]
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithRetryAfter sets the suggested delay before the next attempt.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
