package cache

import "errors"

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a stored entry could not be decoded
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrInvalidState indicates an operation needs data the response was built without
	ErrInvalidState = errors.New("invalid cached response state")
)
