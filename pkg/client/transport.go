package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/http-cache-store/pkg/cache"
	"github.com/rs/zerolog"
)

// HeaderCacheStatus reports whether a response was served from the cache.
const HeaderCacheStatus = "X-Cache"

// Cache status values.
const (
	CacheStatusHit    = "HIT"
	CacheStatusMiss   = "MISS"
	CacheStatusBypass = "BYPASS"
)

// Transport is an http.RoundTripper that serves fresh responses from a
// cache and stores cacheable responses from the origin. Stale entries are
// refetched; they are never revalidated.
type Transport struct {
	// Base performs origin requests (default: http.DefaultTransport).
	Base http.RoundTripper

	// Cache holds stored responses. Required.
	Cache *cache.Manager

	// Key derives cache keys (default: DefaultKey).
	Key KeyFunc

	Logger zerolog.Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) key(req *http.Request) string {
	if t.Key == nil {
		return DefaultKey(req)
	}
	return t.Key(req)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		resp, err := t.base().RoundTrip(req)
		if err != nil {
			return nil, err
		}
		setCacheStatus(resp, CacheStatusBypass)
		return resp, nil
	}

	ctx := req.Context()
	key := t.key(req)
	logger := t.Logger.With().Str("key", key).Logger()

	reqCC := cache.ParseCacheControl(req.Header.Values("Cache-Control"))
	if reqCC.Has(cache.DirectiveNoCache) {
		logger.Debug().Msg("Request demands origin response, skipping lookup")
	} else if resp, ok := t.lookup(ctx, req, key, logger); ok {
		return resp, nil
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if cache.IsStorable(req, resp) {
		if err := t.store(ctx, key, resp, logger); err != nil {
			resp.Body.Close()
			return nil, err
		}
	}
	setCacheStatus(resp, CacheStatusMiss)
	return resp, nil
}

// setCacheStatus marks resp with status. Some RoundTrippers return a nil Header.
func setCacheStatus(resp *http.Response, status string) {
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	resp.Header.Set(HeaderCacheStatus, status)
}

// lookup returns the stored response for key if it is still fresh.
func (t *Transport) lookup(ctx context.Context, req *http.Request, key string, logger zerolog.Logger) (*http.Response, bool) {
	cached, err := t.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Cache get error")
		}
		cache.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	f := cached.Evaluate()
	if !f.Fresh {
		cache.CacheLookups.WithLabelValues("stale").Inc()
		logger.Debug().
			Dur("age", f.Age).
			Dur("max_age", f.MaxAge).
			Msg("Cached response is stale")
		return nil, false
	}

	resp, err := cached.ToResponse()
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot unwrap cached response")
		cache.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	cache.CacheLookups.WithLabelValues("hit").Inc()
	logger.Debug().Dur("ttl", f.TTL).Msg("Cache hit")

	resp.Request = req
	resp.Header.Set("Age", strconv.FormatInt(int64(f.Age.Seconds()), 10))
	resp.Header.Set(HeaderCacheStatus, CacheStatusHit)
	return resp, true
}

// store writes resp to the cache. Only a failure to read the body is
// returned; storage errors are logged.
func (t *Transport) store(ctx context.Context, key string, resp *http.Response, logger zerolog.Logger) error {
	cached, err := cache.FromHTTPResponse(resp, t.Cache.Clock())
	if err != nil {
		return fmt.Errorf("capture response: %w", err)
	}

	if _, err := t.Cache.Set(ctx, key, cached); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache response")
	}
	return nil
}
