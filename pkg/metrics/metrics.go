// Package metrics provides the centralized Prometheus metrics registry for
// the market-data cache. All metrics are defined in their respective
// packages (cache, detector) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the market-data cache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - mdcache_hits_total{pattern} (Counter): Cache hits by key pattern
//   - mdcache_misses_total{pattern} (Counter): Cache misses by key pattern
//   - mdcache_errors_total{operation} (Counter): Cache operation errors
//   - mdcache_operation_duration_seconds{operation} (Histogram): Operation latency
//   - mdcache_slow_operations_total{operation} (Counter): Operations over the slow threshold
//   - mdcache_lock_outcomes_total{outcome} (Counter): Stampede lock outcomes
//     (acquired, denied, wait_hit, fallback)
//
// Detection Metrics (pkg/detector):
//   - mdcache_detections_total{reason} (Counter): Detection verdicts by reason
//   - mdcache_detection_duration_seconds (Histogram): Detection latency
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(mdcache_hits_total[5m])) /
//   (sum(rate(mdcache_hits_total[5m])) + sum(rate(mdcache_misses_total[5m])))
//
//   # Stampede Fallback Rate
//   rate(mdcache_lock_outcomes_total{outcome="fallback"}[5m])
//
//   # P95 Operation Latency
//   histogram_quantile(0.95, rate(mdcache_operation_duration_seconds_bucket[5m]))
//
//   # Share of Updates Propagated During Trading
//   sum(rate(mdcache_detections_total{reason=~"price_significant|trading_any_change"}[5m]))
