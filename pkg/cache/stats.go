package cache

import (
	"strings"
	"sync"
)

// statsTracker accumulates per-pattern hit/miss counters for one Service
// instance. Counters are process-local and rebuilt from zero on restart;
// they are intentionally not read back from Redis so the hit rate reflects
// this process's view of the cache.
type statsTracker struct {
	mu       sync.Mutex
	patterns map[string]*patternCounters
}

type patternCounters struct {
	Hits   uint64
	Misses uint64
}

// PatternStats is a point-in-time copy of one pattern's counters.
type PatternStats struct {
	Pattern string  `json:"pattern"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func newStatsTracker() *statsTracker {
	return &statsTracker{
		patterns: make(map[string]*patternCounters),
	}
}

// keyPattern groups keys by their leading colon-separated segments, so
// "quote:AAPL" and "quote:TSLA" share the "quote" bucket and
// "md:quote:AAPL" lands in "md:quote".
func keyPattern(key string) string {
	parts := strings.SplitN(key, ":", 3)
	switch len(parts) {
	case 1:
		return "default"
	case 2:
		return parts[0]
	default:
		return parts[0] + ":" + parts[1]
	}
}

func (t *statsTracker) recordHit(key string) {
	pattern := keyPattern(key)
	t.mu.Lock()
	t.counters(pattern).Hits++
	t.mu.Unlock()
	CacheHits.WithLabelValues(pattern).Inc()
}

func (t *statsTracker) recordMiss(key string) {
	pattern := keyPattern(key)
	t.mu.Lock()
	t.counters(pattern).Misses++
	t.mu.Unlock()
	CacheMisses.WithLabelValues(pattern).Inc()
}

// counters must be called with t.mu held.
func (t *statsTracker) counters(pattern string) *patternCounters {
	c, ok := t.patterns[pattern]
	if !ok {
		c = &patternCounters{}
		t.patterns[pattern] = c
	}
	return c
}

// snapshot returns a copy of all pattern counters plus the overall hit rate.
func (t *statsTracker) snapshot() ([]PatternStats, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]PatternStats, 0, len(t.patterns))
	var totalHits, totalMisses uint64
	for pattern, c := range t.patterns {
		ps := PatternStats{Pattern: pattern, Hits: c.Hits, Misses: c.Misses}
		if c.Hits+c.Misses > 0 {
			ps.HitRate = float64(c.Hits) / float64(c.Hits+c.Misses)
		}
		stats = append(stats, ps)
		totalHits += c.Hits
		totalMisses += c.Misses
	}

	var overall float64
	if totalHits+totalMisses > 0 {
		overall = float64(totalHits) / float64(totalHits+totalMisses)
	}
	return stats, overall
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	t.patterns = make(map[string]*patternCounters)
	t.mu.Unlock()
}
