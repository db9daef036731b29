package inflight

import "errors"

var (
	ErrAlreadyInFlight = errors.New("a request is already in flight")
	ErrClosed          = errors.New("coordinator is closed")
	ErrClientPanic     = errors.New("request client panicked")
	ErrNilClient       = errors.New("request client is required")
)
