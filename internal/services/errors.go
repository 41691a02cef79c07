package services

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is wrapped when a backend answers without usable text.
var ErrEmptyResponse = errors.New("empty response")

// BackendError is returned for any transport failure, timeout, non-success
// HTTP status, undecodable body, or empty reply.
type BackendError struct {
	Backend    string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s backend: status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendError(backend string, status int, err error) *BackendError {
	return &BackendError{Backend: backend, StatusCode: status, Err: err}
}

// IsBackendError reports whether err carries a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
