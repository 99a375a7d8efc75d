package cache

import (
	"context"
	"time"
)

// Store persists encoded cache entries. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the stored value, or ErrCacheMiss if the key is absent
	// or its expiry has passed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
