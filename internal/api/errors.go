package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError wraps a transport-level failure: no connectivity, DNS
// failure, timeout. The request never produced an HTTP status.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx response from the backend. The body is kept
// verbatim for display and logging.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// ResponseFormatError is a 2xx response whose payload could not be used:
// undecodable JSON, or a transform response with neither image nor text.
type ResponseFormatError struct {
	Reason string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("unusable response: %s", e.Reason)
}

// IsUnauthorized reports whether err is an HTTP 401 from the backend.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusUnauthorized
}
