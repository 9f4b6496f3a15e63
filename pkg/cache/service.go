package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/market-cache/pkg/codec"
	"github.com/Sternrassler/market-cache/pkg/logging"
)

// Service is the distributed cache façade over Redis. One instance per
// process is shared by all callers; all operations are safe for
// concurrent use.
type Service struct {
	rdb    redis.Cmdable
	config Config
	logger zerolog.Logger
	stats  *statsTracker
}

// Config holds the cache service configuration.
type Config struct {
	// DefaultTTL applies to Set calls without an explicit TTL.
	DefaultTTL time.Duration

	// CompressionThreshold is the encoded payload size in bytes above
	// which values are compressed before storage.
	CompressionThreshold int

	// MinCompressionSaving is the fraction of bytes compression must save
	// versus the raw payload, otherwise the raw form is stored.
	MinCompressionSaving float64

	// MaxKeyLength bounds cache key length; longer keys are rejected
	// before any network call.
	MaxKeyLength int

	// MaxBatchSize bounds MGet/MSet batch sizes and the per-round-trip
	// delete batch in DelByPattern.
	MaxBatchSize int

	// LockTTL is the distributed lock TTL for GetOrSet. A crashed lock
	// holder cannot wedge the key longer than this.
	LockTTL time.Duration

	// LockWaitTimeout bounds how long a lock-denied GetOrSet caller polls
	// for another holder's result before computing uncached.
	LockWaitTimeout time.Duration

	// LockRetryInterval is the poll interval while waiting on a lock.
	LockRetryInterval time.Duration

	// SlowOpThreshold marks operations slower than this for warn logging.
	SlowOpThreshold time.Duration

	// MemoryWarnRatio is the used/max memory ratio above which the health
	// check reports a warning.
	MemoryWarnRatio float64
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:           5 * time.Minute,
		CompressionThreshold: codec.DefaultCompressionThreshold,
		MinCompressionSaving: codec.DefaultMinSavingRatio,
		MaxKeyLength:         512,
		MaxBatchSize:         100,
		LockTTL:              30 * time.Second,
		LockWaitTimeout:      5 * time.Second,
		LockRetryInterval:    50 * time.Millisecond,
		SlowOpThreshold:      100 * time.Millisecond,
		MemoryWarnRatio:      0.90,
	}
}

// New creates a cache service backed by the given Redis client.
func New(rdb redis.Cmdable, config Config) *Service {
	if rdb == nil {
		panic("redis client cannot be nil")
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.MaxKeyLength <= 0 {
		config.MaxKeyLength = 512
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 100
	}
	if config.LockRetryInterval <= 0 {
		config.LockRetryInterval = 50 * time.Millisecond
	}
	return &Service{
		rdb:    rdb,
		config: config,
		logger: logging.NewLogger("cache"),
		stats:  newStatsTracker(),
	}
}

// SetOption customizes a single Set or GetOrSet call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl                  time.Duration
	compressionThreshold int
}

// WithTTL overrides the default TTL for this call.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = ttl }
}

// WithCompressionThreshold overrides the compression threshold for this
// call. A value <= 0 disables compression.
func WithCompressionThreshold(bytes int) SetOption {
	return func(o *setOptions) { o.compressionThreshold = bytes }
}

func (s *Service) applyOptions(opts []SetOption) setOptions {
	o := setOptions{
		ttl:                  s.config.DefaultTTL,
		compressionThreshold: s.config.CompressionThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// validateKey rejects oversized keys before any network call.
func (s *Service) validateKey(key string) error {
	if len(key) > s.config.MaxKeyLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLong, len(key), s.config.MaxKeyLength)
	}
	return nil
}

// observe records operation latency and logs a warning when the slow
// threshold is exceeded. Call as: defer s.observe("get", time.Now()).
func (s *Service) observe(op string, start time.Time) {
	elapsed := time.Since(start)
	OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if s.config.SlowOpThreshold > 0 && elapsed > s.config.SlowOpThreshold {
		SlowOperations.WithLabelValues(op).Inc()
		s.logger.Warn().
			Str("operation", op).
			Dur("duration", elapsed).
			Msg("Slow cache operation")
	}
}

// Get retrieves a value by key and deserializes it into out.
// Returns (false, nil) on a cache miss. An undecodable stored payload is
// a hard error: it indicates store corruption and is never swallowed.
func (s *Service) Get(ctx context.Context, key string, out any) (bool, error) {
	if err := s.validateKey(key); err != nil {
		return false, err
	}
	defer s.observe("get", time.Now())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.stats.recordMiss(key)
			return false, nil
		}
		CacheErrors.WithLabelValues("get").Inc()
		return false, storeErr("get", err)
	}

	if err := codec.Decode(data, out); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return false, fmt.Errorf("get %q: %w", key, err)
	}

	s.stats.recordHit(key)
	return true, nil
}

// Set serializes a value, conditionally compresses it and writes it with
// a TTL. TTL is always expressed to Redis in whole seconds.
func (s *Service) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("set", time.Now())

	o := s.applyOptions(opts)

	data, err := codec.Encode(value, o.compressionThreshold, s.config.MinCompressionSaving)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("set %q: %w", key, err)
	}

	ttl := o.ttl.Truncate(time.Second)
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return storeErr("set", err)
	}
	return nil
}

// Del removes one or more keys, returning how many existed.
func (s *Service) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	for _, key := range keys {
		if err := s.validateKey(key); err != nil {
			return 0, err
		}
	}
	defer s.observe("delete", time.Now())

	count, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return 0, storeErr("del", err)
	}
	return count, nil
}

// Expire updates a key's TTL. Returns false if the key does not exist.
// Fractional TTLs round up to the next whole second: Redis expresses
// TTLs in whole seconds, and truncating to EXPIRE 0 would delete the key.
func (s *Service) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.validateKey(key); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	defer s.observe("expire", time.Now())

	secs := ttl.Truncate(time.Second)
	if secs < ttl {
		secs += time.Second
	}

	ok, err := s.rdb.Expire(ctx, key, secs).Result()
	if err != nil {
		CacheErrors.WithLabelValues("expire").Inc()
		return false, storeErr("expire", err)
	}
	return ok, nil
}

// PatternStats returns a copy of this instance's per-pattern hit/miss
// counters.
func (s *Service) PatternStats() []PatternStats {
	stats, _ := s.stats.snapshot()
	return stats
}

// HitRate returns the overall hit rate observed by this instance.
func (s *Service) HitRate() float64 {
	_, overall := s.stats.snapshot()
	return overall
}

// ResetStats clears the instance-local hit/miss counters. Intended for
// test isolation between cases sharing one Service.
func (s *Service) ResetStats() {
	s.stats.reset()
}
