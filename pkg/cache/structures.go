package cache

import (
	"context"
	"time"
)

// Auxiliary structure helpers for Redis lists, sets and hashes.
//
// Write operations propagate store errors as failures. Read operations
// are fault-tolerant: on a store error they log and return a
// type-appropriate empty default, since these structures back best-effort
// secondary indexes (watchlists, symbol memberships, per-symbol counters)
// where an empty answer is preferable to a failed request.

// ListPush prepends values to a list.
func (s *Service) ListPush(ctx context.Context, key string, values ...any) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("list_push", time.Now())

	if err := s.rdb.LPush(ctx, key, values...).Err(); err != nil {
		CacheErrors.WithLabelValues("list_push").Inc()
		return storeErr("lpush", err)
	}
	return nil
}

// ListRange returns list elements in [start, stop]. Store errors yield an
// empty slice.
func (s *Service) ListRange(ctx context.Context, key string, start, stop int64) []string {
	if err := s.validateKey(key); err != nil {
		return []string{}
	}
	defer s.observe("list_range", time.Now())

	values, err := s.rdb.LRange(ctx, key, start, stop).Result()
	if err != nil {
		CacheErrors.WithLabelValues("list_range").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("List range failed, returning empty")
		return []string{}
	}
	return values
}

// ListTrim trims a list to the range [start, stop].
func (s *Service) ListTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("list_trim", time.Now())

	if err := s.rdb.LTrim(ctx, key, start, stop).Err(); err != nil {
		CacheErrors.WithLabelValues("list_trim").Inc()
		return storeErr("ltrim", err)
	}
	return nil
}

// SetAdd adds members to a set.
func (s *Service) SetAdd(ctx context.Context, key string, members ...any) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("set_add", time.Now())

	if err := s.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		CacheErrors.WithLabelValues("set_add").Inc()
		return storeErr("sadd", err)
	}
	return nil
}

// SetRemove removes members from a set.
func (s *Service) SetRemove(ctx context.Context, key string, members ...any) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("set_remove", time.Now())

	if err := s.rdb.SRem(ctx, key, members...).Err(); err != nil {
		CacheErrors.WithLabelValues("set_remove").Inc()
		return storeErr("srem", err)
	}
	return nil
}

// SetIsMember reports set membership. Store errors yield false.
func (s *Service) SetIsMember(ctx context.Context, key string, member any) bool {
	if err := s.validateKey(key); err != nil {
		return false
	}
	defer s.observe("set_ismember", time.Now())

	ok, err := s.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		CacheErrors.WithLabelValues("set_ismember").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Set membership check failed, returning false")
		return false
	}
	return ok
}

// SetMembers returns all members of a set. Store errors yield an empty
// slice.
func (s *Service) SetMembers(ctx context.Context, key string) []string {
	if err := s.validateKey(key); err != nil {
		return []string{}
	}
	defer s.observe("set_members", time.Now())

	members, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("set_members").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Set members read failed, returning empty")
		return []string{}
	}
	return members
}

// HashSet sets one field in a hash.
func (s *Service) HashSet(ctx context.Context, key, field string, value any) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	defer s.observe("hash_set", time.Now())

	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		CacheErrors.WithLabelValues("hash_set").Inc()
		return storeErr("hset", err)
	}
	return nil
}

// HashGetAll returns all fields of a hash. Store errors yield an empty
// map.
func (s *Service) HashGetAll(ctx context.Context, key string) map[string]string {
	if err := s.validateKey(key); err != nil {
		return map[string]string{}
	}
	defer s.observe("hash_getall", time.Now())

	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("hash_getall").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Hash read failed, returning empty")
		return map[string]string{}
	}
	return fields
}

// HashIncrBy atomically increments a hash field, returning the new value.
func (s *Service) HashIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	if err := s.validateKey(key); err != nil {
		return 0, err
	}
	defer s.observe("hash_incrby", time.Now())

	value, err := s.rdb.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		CacheErrors.WithLabelValues("hash_incrby").Inc()
		return 0, storeErr("hincrby", err)
	}
	return value, nil
}
