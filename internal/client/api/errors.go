package api

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by Client unwraps to one of them.
var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrBadResponse  = errors.New("unexpected response")
)

// Error describes a failed backend call.
type Error struct {
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Message is suitable for display.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		if e.StatusCode == 0 {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s (%d)", e.Err, e.StatusCode)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Err, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// statusError maps an HTTP status code to its sentinel.
func statusError(code int) error {
	switch {
	case code == 401:
		return ErrUnauthorized
	case code == 403:
		return ErrForbidden
	case code == 404:
		return ErrNotFound
	case code >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}

// Message extracts the display message from err when it is an *Error,
// and err.Error() otherwise.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
