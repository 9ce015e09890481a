package recsys

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a recommendation request failed
type ErrorKind int

const (
	// ErrorKindTransport means the request never produced an HTTP response
	// (host unreachable, timeout, open circuit breaker)
	ErrorKindTransport ErrorKind = iota + 1
	// ErrorKindStatus means the API answered with a non-2xx status
	ErrorKindStatus
	// ErrorKindShape means the body was not JSON or lacked the expected field
	ErrorKindShape
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTransport:
		return "transport_error"
	case ErrorKindStatus:
		return "status_error"
	case ErrorKindShape:
		return "shape_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// RequestError describes a failed call to the recommendation API.
// It never reaches callers of the query operations; it is only reported
// through logs, error hooks and metrics.
type RequestError struct {
	Kind       ErrorKind
	Operation  string
	StatusCode int
	Message    string
	InnerError error
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.InnerError != nil {
		return fmt.Sprintf("%s: %s: %s (inner: %v)", e.Kind, e.Operation, e.Message, e.InnerError)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Operation, e.Message)
}

// Unwrap returns the inner error
func (e *RequestError) Unwrap() error {
	return e.InnerError
}

// NewTransportError creates a new transport error
func NewTransportError(operation string, inner error) *RequestError {
	return &RequestError{
		Kind:       ErrorKindTransport,
		Operation:  operation,
		Message:    "request failed",
		InnerError: inner,
	}
}

// NewStatusError creates a new error for a non-2xx response
func NewStatusError(operation string, statusCode int, body string) *RequestError {
	return &RequestError{
		Kind:       ErrorKindStatus,
		Operation:  operation,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("unexpected status %d: %s", statusCode, body),
	}
}

// NewShapeError creates a new error for a body that does not match the expected structure
func NewShapeError(operation, message string, inner error) *RequestError {
	return &RequestError{
		Kind:       ErrorKindShape,
		Operation:  operation,
		Message:    message,
		InnerError: inner,
	}
}

// KindOf returns the ErrorKind of err, or 0 if err is not a *RequestError
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return 0
}
