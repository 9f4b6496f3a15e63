package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by key pattern
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"pattern"},
	)

	// CacheMisses tracks cache misses by key pattern
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"pattern"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "mget", "mset", ...
	)

	// OperationDuration tracks cache operation latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mdcache_operation_duration_seconds",
			Help:    "Cache operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	// SlowOperations tracks operations exceeding the slow-op threshold
	SlowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_slow_operations_total",
			Help: "Total number of cache operations exceeding the slow threshold",
		},
		[]string{"operation"},
	)

	// LockOutcomes tracks distributed lock outcomes during stampede protection
	LockOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_lock_outcomes_total",
			Help: "Distributed lock outcomes during getOrSet stampede protection",
		},
		[]string{"outcome"}, // "acquired", "denied", "wait_hit", "fallback"
	)
)
