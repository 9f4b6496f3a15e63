package cache

import (
	"errors"
	"fmt"
)

// Common errors returned by the cache service.
var (
	// ErrKeyTooLong is returned when a key exceeds Config.MaxKeyLength.
	// The request is rejected before any network call.
	ErrKeyTooLong = errors.New("cache key too long")

	// ErrBatchTooLarge is returned when a batched operation exceeds
	// Config.MaxBatchSize. The request is rejected before any network call.
	ErrBatchTooLarge = errors.New("batch size exceeds limit")

	// ErrInvalidTTL is returned when an operation receives a TTL of zero
	// or less. The request is rejected before any network call.
	ErrInvalidTTL = errors.New("ttl must be positive")

	// ErrStoreUnavailable wraps connection, timeout and protocol errors
	// reported by the Redis adapter. Callers may treat it as retryable.
	ErrStoreUnavailable = errors.New("cache store unavailable")
)

// storeErr wraps an adapter failure with the failed operation for context.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
