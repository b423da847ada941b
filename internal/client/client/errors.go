package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected")
)

// StatusError keeps the HTTP status and server message next to the sentinel
// it was mapped to.
type StatusError struct {
	Code    int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.Err, e.Code)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Err, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// classify maps an HTTP status code to a transport sentinel.
func classify(code int) error {
	switch {
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}
