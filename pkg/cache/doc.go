// Package cache decides whether a captured HTTP response may still be
// served from a cache, and stores such responses.
//
// The freshness rules follow RFC 9111 §4.2:
//
// - The freshness lifetime is s-maxage, else max-age, else Expires - Date
// - The age is the Age header, else now - Date (never negative)
// - A response is fresh while lifetime - age is positive
// - A response without any freshness information is never fresh
//
// # Basic Usage
//
//	resp := cache.NewCachedResponse(cache.ResponseConfig{
//		Status:          200,
//		ResponseHeaders: http.Header{"Cache-Control": {"max-age=60"}},
//		Body:            []byte("Hi!"),
//	})
//
//	if resp.IsFresh() {
//		httpResp, err := resp.ToResponse()
//		...
//	}
//
// Use Evaluate when several values are needed for one decision; it reads
// the clock once.
//
// # Storage
//
//	manager := cache.NewManager(cache.NewRedisStore(redisClient, "httpcache:"), logger)
//
//	// Store a live response while it is fresh
//	cached, err := cache.FromHTTPResponse(resp, time.Now)
//	if err != nil {
//		return err
//	}
//	if cache.IsStorable(req, resp) {
//		_, err = manager.Set(ctx, key, cached)
//	}
//
//	// Load it back
//	cached, err = manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from origin
//	}
//
// Stores are available for Redis (RedisStore), SQLite (SQLiteStore) and
// process memory (MemoryStore).
//
// # Metrics
//
//   - httpcache_lookups_total{result} - Lookups by hit, stale or miss
//   - httpcache_stores_total - Responses written
//   - httpcache_stored_bytes_total - Encoded bytes written
//   - httpcache_errors_total{operation} - Store errors
//
// Revalidation of stale responses is not performed.
package cache
