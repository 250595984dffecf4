package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind categorizes a pipeline failure. Callers branch on the kind to
// decide whether a retry could help and which UI state to surface.
type ErrorKind string

const (
	// ErrorKindRateLimited means the local cooldown window blocked the
	// request before any network call was made.
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindTimeout means an attempt exceeded its deadline. Never retried.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindOverloaded means every attempt, including the fallback
	// model, was rejected with an overload signal.
	ErrorKindOverloaded ErrorKind = "overloaded"

	// ErrorKindMalformedResponse means the backend replied but the payload
	// did not match the wire contract. Retrying would not help.
	ErrorKindMalformedResponse ErrorKind = "malformed_response"

	// ErrorKindNetwork covers transport-level failures and non-overload
	// HTTP error statuses.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindDecode means the input payload could not be decoded as an image.
	ErrorKindDecode ErrorKind = "decode"

	// ErrorKindUploadFailed is internal to the upload sidecar; it is logged
	// there and never propagates to analysis callers.
	ErrorKindUploadFailed ErrorKind = "upload_failed"
)

// Error is the canonical pipeline error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// RetryAfter is set for rate_limited errors: how long until the next
	// request would be allowed.
	RetryAfter time.Duration `json:"-"`
}

func (e *Error) Error() string {
	if e.Kind == ErrorKindRateLimited {
		return fmt.Sprintf("%s: %s (retry after %s)", e.Kind, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatusCode maps the error kind to the status the HTTP facade returns.
func (e *Error) HTTPStatusCode() int {
	switch e.Kind {
	case ErrorKindRateLimited:
		return http.StatusTooManyRequests
	case ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case ErrorKindOverloaded:
		return http.StatusServiceUnavailable
	case ErrorKindMalformedResponse, ErrorKindNetwork:
		return http.StatusBadGateway
	case ErrorKindDecode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a later identical request could succeed without
// user action. Malformed responses and decode failures are not retryable.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case ErrorKindMalformedResponse, ErrorKindDecode:
		return false
	default:
		return true
	}
}

// NewError creates a canonical error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ErrRateLimited creates a rate_limited error carrying the remaining wait.
func ErrRateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       ErrorKindRateLimited,
		Message:    "analysis cooldown active",
		RetryAfter: retryAfter,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *Error {
	return NewError(ErrorKindTimeout, message)
}

// ErrOverloaded creates an overloaded error.
func ErrOverloaded(message string) *Error {
	return NewError(ErrorKindOverloaded, message)
}

// ErrMalformedResponse creates a malformed_response error.
func ErrMalformedResponse(message string) *Error {
	return NewError(ErrorKindMalformedResponse, message)
}

// ErrNetwork creates a network error.
func ErrNetwork(message string) *Error {
	return NewError(ErrorKindNetwork, message)
}

// ErrDecode creates a decode error.
func ErrDecode(message string) *Error {
	return NewError(ErrorKindDecode, message)
}

// KindOf extracts the error kind, or "" if err is not a pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
