package types

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotAuthenticated is returned when a request needs a session and has none
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the session cannot be refreshed
	ErrSessionExpired = errors.New("session expired")

	// ErrRateLimited is returned when rate limited
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout is returned on timeout
	ErrTimeout = errors.New("request timeout")

	// ErrNotFound is returned when resource not found
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied is returned on 403 responses
	ErrPermissionDenied = errors.New("permission denied")

	// ErrServerError is returned for server errors
	ErrServerError = errors.New("server error")

	// ErrNetwork is returned when the request never reached the backend
	ErrNetwork = errors.New("network failure")
)

// Error represents a backend API error. Message holds the backend's status text
// (for example EMAIL_EXISTS), which callers translate before showing it.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("error: %s", e.Code)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
