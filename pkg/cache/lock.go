package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/market-cache/pkg/codec"
)

// lockKeyPrefix namespaces distributed lock keys away from data keys.
const lockKeyPrefix = "lock:"

// releaseScript implements compare-and-delete lock release as a single
// server-side script. A plain GET+DEL would race: the lock could expire
// and be re-acquired by another holder between the two commands.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Factory computes a value on a cache miss. It receives the caller's
// context and must honor its deadline.
type Factory func(ctx context.Context) (any, error)

// GetOrSet returns the cached value for key, or computes and caches it
// via factory under stampede protection. At most one concurrent caller
// runs the factory per key while the distributed lock holds; the rest
// poll for the published result. A caller that exhausts LockWaitTimeout
// computes directly without caching — availability is preferred over
// strict single-flight once the wait bound is hit.
//
// Per-key state machine:
//
//	MISS -> LOCK_ATTEMPT -> LOCK_HELD   -> COMPUTE -> PUBLISHED
//	                     -> LOCK_DENIED -> POLL    -> HIT
//	                                               -> TIMEOUT -> FALLBACK_COMPUTE
func (s *Service) GetOrSet(ctx context.Context, key string, factory Factory, out any, opts ...SetOption) error {
	if err := s.validateKey(key); err != nil {
		return err
	}

	// Fast path: value already cached.
	found, err := s.Get(ctx, key, out)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	token := uuid.NewString()
	lockKey := lockKeyPrefix + key

	acquired, err := s.rdb.SetNX(ctx, lockKey, token, s.lockTTL()).Result()
	if err != nil {
		// Lock bookkeeping failed; compute without protection rather
		// than failing the read path.
		s.logger.Warn().Err(err).Str("key", key).Msg("Lock acquisition error, computing uncached")
		LockOutcomes.WithLabelValues("fallback").Inc()
		return s.computeInto(ctx, factory, out)
	}

	if acquired {
		LockOutcomes.WithLabelValues("acquired").Inc()
		return s.computeAndPublish(ctx, key, lockKey, token, factory, out, opts)
	}

	LockOutcomes.WithLabelValues("denied").Inc()
	return s.waitForValue(ctx, key, factory, out)
}

// computeAndPublish runs the factory while holding the lock, publishes
// the result and releases the lock.
func (s *Service) computeAndPublish(ctx context.Context, key, lockKey, token string, factory Factory, out any, opts []SetOption) error {
	defer s.releaseLock(lockKey, token)

	value, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("factory for %q: %w", key, err)
	}

	if err := s.Set(ctx, key, value, opts...); err != nil {
		// The computed value is still good; deliver it even if the
		// publish failed.
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to publish computed value")
	}
	return assignValue(value, out)
}

// waitForValue polls for another holder's published result until data
// appears or the wait timeout elapses, then falls back to an uncached
// direct computation.
func (s *Service) waitForValue(ctx context.Context, key string, factory Factory, out any) error {
	deadline := time.NewTimer(s.lockWaitTimeout())
	defer deadline.Stop()
	ticker := time.NewTicker(s.config.LockRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			s.logger.Debug().Str("key", key).Msg("Lock wait timeout, computing uncached")
			LockOutcomes.WithLabelValues("fallback").Inc()
			return s.computeInto(ctx, factory, out)
		case <-ticker.C:
			found, err := s.lookup(ctx, key, out)
			if err != nil {
				return err
			}
			if found {
				LockOutcomes.WithLabelValues("wait_hit").Inc()
				return nil
			}
		}
	}
}

// lookup fetches and decodes a key without recording hit/miss stats.
// The wait loop polls many times for one logical get; counting every
// tick as a miss would skew the pattern's hit rate.
func (s *Service) lookup(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, storeErr("get", err)
	}
	if err := codec.Decode(data, out); err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	return true, nil
}

// releaseLock deletes the lock only if this holder's token still matches.
// Failures are logged, not propagated: the lock TTL guarantees eventual
// release either way.
func (s *Service) releaseLock(lockKey, token string) {
	// The holding operation may have exhausted the caller's context;
	// release on a short independent deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, s.rdb, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		s.logger.Warn().Err(err).Str("lock_key", lockKey).Msg("Lock release failed, TTL will expire it")
	}
}

// computeInto runs the factory and assigns its result without caching.
func (s *Service) computeInto(ctx context.Context, factory Factory, out any) error {
	value, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	return assignValue(value, out)
}

// assignValue copies a factory result into the caller's typed output via
// the wire codec, so GetOrSet yields identical shapes on the compute and
// cached paths.
func assignValue(value, out any) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	return codec.Unmarshal(data, out)
}

func (s *Service) lockTTL() time.Duration {
	if s.config.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.config.LockTTL
}

func (s *Service) lockWaitTimeout() time.Duration {
	if s.config.LockWaitTimeout <= 0 {
		return 5 * time.Second
	}
	return s.config.LockWaitTimeout
}
