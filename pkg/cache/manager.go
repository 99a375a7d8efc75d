package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Manager stores and loads cached responses through a Store.
type Manager struct {
	store  Store
	clock  Clock
	logger zerolog.Logger
}

// NewManager creates a cache manager on top of store.
func NewManager(store Store, logger zerolog.Logger) *Manager {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Manager{
		store:  store,
		clock:  time.Now,
		logger: logger,
	}
}

// WithClock returns a copy of the manager using clock for freshness math.
func (m *Manager) WithClock(clock Clock) *Manager {
	cp := *m
	cp.clock = clock
	return &cp
}

// Clock returns the manager's time source.
func (m *Manager) Clock() Clock {
	return m.clock
}

// Get loads the response stored under key, fresh or not.
// Returns ErrCacheMiss if nothing is stored.
func (m *Manager) Get(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("store get: %w", err)
	}

	entry, err := UnmarshalEntry(data)
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		// unreadable entries are dropped so the next response replaces them
		if delErr := m.store.Delete(ctx, key); delErr != nil {
			m.logger.Warn().Err(delErr).Str("key", key).Msg("Failed to delete invalid entry")
		}
		return nil, err
	}

	return entry.CachedResponse(m.clock), nil
}

// Set stores resp under key for as long as it stays fresh. Responses
// without remaining freshness are not stored and report false.
func (m *Manager) Set(ctx context.Context, key string, resp *CachedResponse) (bool, error) {
	if resp == nil {
		return false, fmt.Errorf("cached response cannot be nil")
	}

	ttl, ok := resp.TTL()
	if !ok || ttl <= 0 {
		m.logger.Debug().Str("key", key).Msg("Response not fresh, skipping store")
		return false, nil
	}

	data, err := NewEntry(resp).Marshal()
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return false, err
	}

	if err := m.store.Set(ctx, key, data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return false, fmt.Errorf("store set: %w", err)
	}

	CacheStores.Inc()
	CacheStoredBytes.Add(float64(len(data)))
	m.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int("bytes", len(data)).
		Msg("Stored response")

	return true, nil
}

// Delete removes the entry stored under key.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.store.Delete(ctx, key); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("store delete: %w", err)
	}
	return nil
}
