package bridge

import (
	"errors"

	"github.com/binSaed/flutter-redirectly/internal/client"
	"github.com/binSaed/flutter-redirectly/internal/links"
)

// Error codes reported to host applications.
const (
	CodeInvalidConfig  = "INVALID_CONFIG"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeAPIError       = "API_ERROR"
	CodeNetworkError   = "NETWORK_ERROR"
	CodeSerialization  = "SERIALIZATION_ERROR"
	CodeParseError     = "PARSE_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
)

// Error is a failed method call as the host sees it.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
	err     error
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// wrap maps a service error onto a host error code. The message is prefixed
// with the failed operation, e.g. "Failed to create link: HTTP 500".
func wrap(op string, err error) *Error {
	be := &Error{Code: CodeAPIError, err: err}
	msg := err.Error()

	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Message()
		be.Details = map[string]any{"statusCode": apiErr.StatusCode}
	case errors.Is(err, client.ErrNotConfigured):
		be.Code = CodeInvalidConfig
		be.Message = "Plugin not properly initialized"
		return be
	case errors.Is(err, links.ErrInvalidParams):
		be.Code = CodeInvalidParams
	case errors.Is(err, client.ErrSerialization):
		be.Code = CodeSerialization
	case errors.Is(err, client.ErrNetwork):
		be.Code = CodeNetworkError
	case errors.Is(err, client.ErrParse):
		be.Code = CodeParseError
	}
	be.Message = "Failed to " + op + ": " + msg
	return be
}
