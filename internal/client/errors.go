package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when a request is made before Initialize.
	ErrNotConfigured = errors.New("client not initialized: api key and base url are required")

	// ErrInvalidConfig is returned by Initialize when the API key or base URL is missing.
	ErrInvalidConfig = errors.New("api key and base url are required")

	// ErrInvalidMethod is returned for HTTP methods other than GET, POST, PUT and DELETE.
	ErrInvalidMethod = errors.New("unsupported http method")

	// ErrNetwork is returned when the request could not be completed.
	ErrNetwork = errors.New("network error")

	// ErrTimeout is returned when the connect or read timeout elapses. It
	// matches ErrNetwork with errors.Is.
	ErrTimeout = fmt.Errorf("%w: timeout", ErrNetwork)

	// ErrSerialization is returned when the request body cannot be encoded.
	ErrSerialization = errors.New("failed to serialize request body")

	// ErrParse is returned when a successful response carries malformed JSON.
	ErrParse = errors.New("failed to parse response")
)

// APIError is returned for any response outside 200-299.
type APIError struct {
	StatusCode int
	// Body is the raw response text.
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Message returns the response text, or "HTTP <code>" when the body was empty.
func (e *APIError) Message() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return e.Body
}
