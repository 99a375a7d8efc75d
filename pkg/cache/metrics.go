package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups tracks lookups by result: "hit", "stale" or "miss"
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheStores tracks entries written to the store
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_stores_total",
			Help: "Total number of responses written to the cache",
		},
	)

	// CacheStoredBytes tracks bytes written to the store
	CacheStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_stored_bytes_total",
			Help: "Total number of encoded bytes written to the cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
