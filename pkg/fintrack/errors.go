package fintrack

import (
	"context"
	"errors"

	"github.com/eshaffer321/fintrack-go/pkg/security"
)

var (
	// ErrNotAuthenticated is returned when a mutation runs outside an authenticated session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound is returned when a local record does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("client closed")
)

// ValidationError is returned when input breaks a validation rule. Message is
// the first violated rule and is safe to show to users.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(res security.Result, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   res.FirstField(),
		Message: res.First(),
		Value:   value,
	}
}

// Error is a failure reported by a collaborator. Message is already translated
// for users; the raw cause is only reachable through Unwrap.
type Error struct {
	Op      string `json:"op"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches target
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

const (
	CodeBackend  = "BACKEND_ERROR"
	CodeCanceled = "CANCELED"
)

// newBackendError translates a collaborator failure
func newBackendError(op string, err error) *Error {
	code := CodeBackend
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = CodeCanceled
	}
	return &Error{
		Op:      op,
		Code:    code,
		Message: security.ToUserMessage(err),
		Err:     err,
	}
}

// IsValidationError reports whether err is a *ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthError reports whether err came from a missing session
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsBackendError reports whether err is a translated collaborator failure
func IsBackendError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
