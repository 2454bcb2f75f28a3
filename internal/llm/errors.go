package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType classifies provider failures for retry decisions.
type ErrorType int8

const (
	// ErrorTypeRateLimit is a 429 or quota response.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient is a 5xx, timeout, or dropped connection.
	ErrorTypeTransient
	// ErrorTypeEmptyResponse is a successful call that returned no text.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth is a missing, invalid, or unauthorized API key.
	ErrorTypeAuth
	// ErrorTypeBadRequest is a malformed or rejected request.
	ErrorTypeBadRequest
	// ErrorTypeUnknown is anything not otherwise classified.
	ErrorTypeUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error is a classified provider error.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm error (%s, status %d): %s", e.Type, e.StatusCode, msg)
	}
	return fmt.Sprintf("llm error (%s): %s", e.Type, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *Error) Transient() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse:
		return true
	default:
		return false
	}
}

// NewError creates a classified error.
func NewError(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// IsTransient reports whether err is a classified transient failure.
// Unclassified errors and context cancellation are not transient.
func IsTransient(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Transient()
	}
	return false
}

// TypeOf returns the classification of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// ClassifyStatus maps an HTTP status code to an error type.
func ClassifyStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrorTypeAuth
	case code == 429:
		return ErrorTypeRateLimit
	case code == 408 || code == 409 || code >= 500:
		return ErrorTypeTransient
	case code >= 400:
		return ErrorTypeBadRequest
	default:
		return ErrorTypeUnknown
	}
}

// classify turns a raw SDK error into an *Error. statusCode is 0 when the
// SDK did not surface an HTTP response.
func classify(err error, statusCode int) *Error {
	if statusCode != 0 {
		return &Error{Err: err, Type: ClassifyStatus(statusCode), StatusCode: statusCode}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Err: err, Type: ErrorTypeUnknown, Message: "request canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Err: err, Type: ErrorTypeTransient, Message: "request timeout"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Err: err, Type: ErrorTypeTransient}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection"), strings.Contains(lower, "eof"),
		strings.Contains(lower, "reset"), strings.Contains(lower, "timeout"):
		return &Error{Err: err, Type: ErrorTypeTransient}
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "quota"):
		return &Error{Err: err, Type: ErrorTypeRateLimit}
	default:
		return &Error{Err: err, Type: ErrorTypeUnknown}
	}
}
