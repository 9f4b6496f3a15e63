// Package cache provides a resilient distributed cache service over Redis
// for market-data payloads.
//
// The service implements:
//
// - JSON serialization with conditional, self-describing compression
// - TTL management (whole-second TTLs, configurable default)
// - Cache-stampede protection via a distributed lock with atomic release
// - Batched multi-key reads and pipelined multi-key writes
// - Cursor-based pattern deletion (never a blocking keyspace listing)
// - Fault-tolerant list/set/hash helpers for best-effort secondary indexes
// - Health checks with memory-pressure warnings
// - Instance-local hit/miss statistics and Prometheus metrics
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache service
//	svc := cache.New(redisClient, cache.DefaultConfig())
//
//	// Store a quote with a 10 second TTL
//	err := svc.Set(ctx, "quote:AAPL", quote, cache.WithTTL(10*time.Second))
//
//	// Read it back
//	var q Quote
//	found, err := svc.Get(ctx, "quote:AAPL", &q)
//
// # Stampede Protection
//
//	// Under concurrent misses for the same key, at most one caller runs
//	// the factory; the rest wait for the published result.
//	var q Quote
//	err := svc.GetOrSet(ctx, "quote:AAPL", func(ctx context.Context) (any, error) {
//		return fetchQuoteUpstream(ctx, "AAPL")
//	}, &q)
//
// # Error Semantics
//
// Cache misses are not errors: Get returns (false, nil). Oversized keys
// and batches fail fast with ErrKeyTooLong/ErrBatchTooLarge before any
// network call. Store failures surface as ErrStoreUnavailable on
// write-class operations; read helpers on auxiliary structures degrade to
// empty defaults instead. Undecodable stored payloads always surface as
// codec.ErrDecode, since they indicate data corruption.
//
// # Metrics
//
// The service exports Prometheus metrics:
//
//   - mdcache_hits_total{pattern} - Cache hits
//   - mdcache_misses_total{pattern} - Cache misses
//   - mdcache_errors_total{operation} - Cache operation errors
//   - mdcache_operation_duration_seconds{operation} - Operation latency
//   - mdcache_slow_operations_total{operation} - Slow operations
//   - mdcache_lock_outcomes_total{outcome} - Stampede lock outcomes
package cache
