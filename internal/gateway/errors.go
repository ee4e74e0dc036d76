package gateway

import (
	"errors"
	"fmt"
)

// APIError is an application error reported by the board service in the
// {"error": {"code", "message"}} envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error returns the server message verbatim so it can be shown to the
// user as-is.
func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

// TransportError wraps a failure to reach the service at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// errorEnvelope is the error body returned by the service on non-2xx.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
