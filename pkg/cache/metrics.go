package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by store name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupipe_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"store"}, // "scrape", "extraction"
	)

	// CacheMisses tracks cache misses by store name
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupipe_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"store"},
	)

	// CacheEvictions tracks expired entries removed, lazily or via cleanup
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupipe_cache_evictions_total",
			Help: "Total number of expired cache entries evicted",
		},
		[]string{"store"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menupipe_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"store", "operation"}, // "get", "set", "remove", "persist"
	)
)
