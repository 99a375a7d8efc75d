// Package metrics documents the Prometheus metrics exported by the cache.
// Metrics are defined in their respective packages (cache, client) to
// maintain modularity and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the metrics registered via promauto in their respective
// packages, in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - httpcache_lookups_total{result} (Counter): Lookups by hit, stale or miss
//   - httpcache_stores_total (Counter): Responses written to the store
//   - httpcache_stored_bytes_total (Counter): Encoded bytes written to the store
//   - httpcache_errors_total{operation} (Counter): Store errors by get, set or delete
//
// Request Metrics (pkg/client):
//   - httpcache_requests_total{cache} (Counter): Requests by HIT, MISS or BYPASS
//   - httpcache_request_duration_seconds{cache} (Histogram): Request duration
//   - httpcache_fetch_errors_total (Counter): Origin requests without a response
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpcache_lookups_total{result="hit"}[5m])) /
//   sum(rate(httpcache_lookups_total[5m]))
//
//   # Stale Ratio
//   rate(httpcache_lookups_total{result="stale"}[5m])
//
//   # P95 Latency Of Cache Misses
//   histogram_quantile(0.95, rate(httpcache_request_duration_seconds_bucket{cache="MISS"}[5m]))
