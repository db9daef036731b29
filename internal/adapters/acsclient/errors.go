package acsclient

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrMalformedResponse = errors.New("malformed registration response")

// TransportFailure is a registration call the server answered with a failure.
type TransportFailure struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *TransportFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registration failed: http %d code %d", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("registration failed: http %d code %d: %s", e.StatusCode, e.Code, e.Message)
}

// Temporary reports whether retrying the same request later may succeed.
func (e *TransportFailure) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
