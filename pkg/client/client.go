// Package client provides an HTTP client that serves fresh responses
// from a cache instead of contacting the origin.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/http-cache-store/pkg/cache"
	"github.com/Sternrassler/http-cache-store/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "httpcache_requests_total",
		Help: "Total client requests by cache status",
	}, []string{"cache"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "httpcache_request_duration_seconds",
		Help:    "Client request duration in seconds by cache status",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"cache"})

	fetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "httpcache_fetch_errors_total",
		Help: "Total origin requests that failed without a response",
	})
)

// Client is a caching HTTP client.
type Client struct {
	httpClient *http.Client
	transport  *Transport
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Store persists cached responses (REQUIRED)
	Store cache.Store

	// User-Agent header sent to origins
	UserAgent string

	// Timeout for a single origin request, including the body
	Timeout time.Duration

	// Base transport for origin requests (default: http.DefaultTransport)
	Base http.RoundTripper

	// Key derives cache keys (default: DefaultKey)
	Key KeyFunc

	// Clock is the time source for freshness math (default: time.Now)
	Clock cache.Clock
}

// DefaultConfig returns a default configuration.
func DefaultConfig(store cache.Store, userAgent string) Config {
	return Config{
		Store:     store,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new caching client.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	// Initialize logger
	logger := logging.NewLogger("httpcache-client")

	manager := cache.NewManager(cfg.Store, logger)
	if cfg.Clock != nil {
		manager = manager.WithClock(cfg.Clock)
	}

	transport := &Transport{
		Base:   cfg.Base,
		Cache:  manager,
		Key:    cfg.Key,
		Logger: logger,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport: transport,
		cache:     manager,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Do performs an HTTP request, answering from the cache when a fresh
// response is stored.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	startTime := time.Now()

	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fetchErrorsTotal.Inc()
		c.logger.Error().
			Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("HTTP request failed")
		return nil, &FetchError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	status := resp.Header.Get(HeaderCacheStatus)
	requestsTotal.WithLabelValues(status).Inc()
	requestDuration.WithLabelValues(status).Observe(time.Since(startTime).Seconds())

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status_code", resp.StatusCode).
		Str("cache", status).
		Dur("duration", time.Since(startTime)).
		Msg("Request completed")

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Inspect performs a GET request and returns the response captured for
// freshness evaluation together with its cache status.
func (c *Client) Inspect(ctx context.Context, url string) (*cache.CachedResponse, string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, "", err
	}

	cached, err := cache.FromHTTPResponse(resp, c.cache.Clock())
	if err != nil {
		return nil, "", err
	}
	return cached, resp.Header.Get(HeaderCacheStatus), nil
}

// Close releases idle connections and closes the store if it holds resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	if closer, ok := c.config.Store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Cache returns the cache manager.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Transport returns the caching round tripper, for use in other http.Clients.
func (c *Client) Transport() *Transport {
	return c.transport
}
