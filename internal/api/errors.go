package api

import (
	"errors"
	"fmt"
	"net/http"
)

// defaultErrorMessage is used when a failed response carries neither an
// error nor a message field.
const defaultErrorMessage = "Request failed"

var (
	// ErrUnexpectedShape is returned when a response does not match the
	// documented envelope schema.
	ErrUnexpectedShape = errors.New("unexpected response shape")

	// ErrNoToken is returned when an auth response succeeds without
	// carrying a session token.
	ErrNoToken = errors.New("response did not include a session token")

	// ErrNotImpersonating is returned by StopImpersonation when no admin
	// session was set aside.
	ErrNotImpersonating = errors.New("not impersonating a user")
)

// Error is an HTTP-level failure: the backend answered with a non-2xx
// status. Error() returns the backend's message verbatim so it can be
// shown to the user as is.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// RejectedError is a logical failure: a 2xx response whose envelope
// carries success=false.
type RejectedError struct {
	Method  string
	Path    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s was rejected", e.Method, e.Path)
	}
	return e.Message
}

// StatusCode returns the HTTP status carried by err, or 0 when err is
// not an HTTP failure.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err (or any error in its chain) is a
// 401 from the backend, meaning the session token is missing or stale.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsRejected reports whether err is a logical (success=false) failure.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}
