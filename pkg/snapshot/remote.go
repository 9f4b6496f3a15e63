package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/market-cache/pkg/cache"
)

// CacheService is the distributed-cache surface the remote tier needs.
// *cache.Service satisfies it.
type CacheService interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any, opts ...cache.SetOption) error
}

// TTLFunc resolves a symbol to its remote snapshot TTL.
type TTLFunc func(symbol string) time.Duration

// DefaultRemoteTTL classifies a symbol by instrument class: high-velocity
// classes get shorter TTLs since stale detection state is worth less for
// them.
func DefaultRemoteTTL(symbol string) time.Duration {
	switch {
	case strings.Contains(symbol, "-") || strings.HasSuffix(symbol, "USDT"):
		// Crypto pairs trade around the clock.
		return 1 * time.Minute
	case strings.HasSuffix(symbol, ".HK"), strings.HasSuffix(symbol, ".SH"), strings.HasSuffix(symbol, ".SZ"):
		return 5 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// remoteTier mirrors snapshots through the distributed cache so detection
// state is shared across processes and survives restarts.
type remoteTier struct {
	cache  CacheService
	ttl    TTLFunc
	logger zerolog.Logger
}

func remoteKey(symbol string) string {
	return cache.Key{Prefix: "snapshot", Symbol: symbol}.String()
}

// get is best-effort: any remote failure degrades to "no snapshot".
func (r *remoteTier) get(ctx context.Context, symbol string) *Snapshot {
	var snap Snapshot
	found, err := r.cache.Get(ctx, remoteKey(symbol), &snap)
	if err != nil {
		r.logger.Debug().Err(err).Str("symbol", symbol).Msg("Remote snapshot read failed, treating as first-time")
		return nil
	}
	if !found {
		return nil
	}
	return &snap
}

// put is best-effort: a failed mirror write only costs cross-process
// sharing until the next accepted detection.
func (r *remoteTier) put(ctx context.Context, snap *Snapshot) {
	err := r.cache.Set(ctx, remoteKey(snap.Symbol), snap, cache.WithTTL(r.ttl(snap.Symbol)))
	if err != nil {
		r.logger.Debug().Err(err).Str("symbol", snap.Symbol).Msg("Remote snapshot write failed")
	}
}
