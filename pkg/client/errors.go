package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNilRequest is returned when Do is called without a request.
	ErrNilRequest = errors.New("request cannot be nil")
)

// FetchError is returned when the origin could not be reached.
type FetchError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
