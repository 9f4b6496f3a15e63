package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/market-cache/pkg/codec"
)

// scanCount is the per-round-trip hint for cursor-based key scans.
const scanCount = 100

// MGet fetches multiple keys in one round trip. Keys not found are absent
// from the result map, not nil-valued. Batches over MaxBatchSize are
// rejected up front with ErrBatchTooLarge.
func (s *Service) MGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	if len(keys) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	if len(keys) > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d keys (max %d)", ErrBatchTooLarge, len(keys), s.config.MaxBatchSize)
	}
	for _, key := range keys {
		if err := s.validateKey(key); err != nil {
			return nil, err
		}
	}
	defer s.observe("mget", time.Now())

	results, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("mget").Inc()
		return nil, storeErr("mget", err)
	}

	values := make(map[string]json.RawMessage, len(keys))
	for i, res := range results {
		if res == nil {
			s.stats.recordMiss(keys[i])
			continue
		}
		payload, ok := res.(string)
		if !ok {
			CacheErrors.WithLabelValues("mget").Inc()
			return nil, fmt.Errorf("mget %q: %w: unexpected reply type %T", keys[i], codec.ErrDecode, res)
		}
		raw, err := codec.Decompress([]byte(payload))
		if err != nil {
			CacheErrors.WithLabelValues("mget").Inc()
			return nil, fmt.Errorf("mget %q: %w", keys[i], err)
		}
		s.stats.recordHit(keys[i])
		values[keys[i]] = json.RawMessage(raw)
	}
	return values, nil
}

// MSet writes multiple values in one pipelined round trip. The call
// succeeds only if every write in the pipeline succeeded; any single
// failure fails the whole call. The store itself is not transactional,
// so partial writes may remain server-side.
func (s *Service) MSet(ctx context.Context, values map[string]any, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	if len(values) > s.config.MaxBatchSize {
		return fmt.Errorf("%w: %d keys (max %d)", ErrBatchTooLarge, len(values), s.config.MaxBatchSize)
	}
	for key := range values {
		if err := s.validateKey(key); err != nil {
			return err
		}
	}
	defer s.observe("mset", time.Now())

	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}
	ttl = ttl.Truncate(time.Second)

	// Encode everything before touching the network so an encoding
	// failure cannot leave a partially-written pipeline behind.
	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		data, err := codec.Encode(value, s.config.CompressionThreshold, s.config.MinCompressionSaving)
		if err != nil {
			CacheErrors.WithLabelValues("mset").Inc()
			return fmt.Errorf("mset %q: %w", key, err)
		}
		encoded[key] = data
	}

	cmds, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, key, data, ttl)
		}
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("mset").Inc()
		return storeErr("mset pipeline", err)
	}
	for _, cmd := range cmds {
		if cmdErr := cmd.Err(); cmdErr != nil {
			CacheErrors.WithLabelValues("mset").Inc()
			return storeErr("mset write", cmdErr)
		}
	}
	return nil
}

// DelByPattern deletes all keys matching a glob pattern, returning the
// number removed. Keys are enumerated with cursor-based SCAN, never a
// blocking full-keyspace listing, and deleted in bounded batches.
func (s *Service) DelByPattern(ctx context.Context, pattern string) (int64, error) {
	defer s.observe("del_by_pattern", time.Now())

	var deleted int64
	var cursor uint64
	batch := make([]string, 0, s.config.MaxBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			CacheErrors.WithLabelValues("del_by_pattern").Inc()
			return storeErr("del batch", err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			CacheErrors.WithLabelValues("del_by_pattern").Inc()
			return deleted, storeErr("scan", err)
		}
		for _, key := range keys {
			batch = append(batch, key)
			if len(batch) >= s.config.MaxBatchSize {
				if err := flush(); err != nil {
					return deleted, err
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if err := flush(); err != nil {
		return deleted, err
	}

	s.logger.Debug().
		Str("pattern", pattern).
		Int64("deleted", deleted).
		Msg("Pattern delete completed")
	return deleted, nil
}
