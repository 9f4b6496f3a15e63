package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HealthStatus values reported by HealthCheck.
const (
	StatusHealthy   = "healthy"
	StatusWarning   = "warning"
	StatusUnhealthy = "unhealthy"
)

// Health is the result of a cache health probe.
type Health struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
	Errors  []string      `json:"errors,omitempty"`
}

// Stats aggregates store introspection with this instance's hit/miss view.
type Stats struct {
	MemoryUsedBytes int64   `json:"memory_used_bytes"`
	KeyCount        int64   `json:"key_count"`
	AvgTTLSeconds   float64 `json:"avg_ttl_seconds"`
	HitRate         float64 `json:"hit_rate"`
}

// HealthCheck pings the store and inspects its memory pressure.
// A failed ping or non-PONG reply is unhealthy. Memory usage at or above
// MemoryWarnRatio of the configured maximum degrades the status to
// warning while the cache keeps serving.
func (s *Service) HealthCheck(ctx context.Context) Health {
	health := Health{Status: StatusHealthy}

	start := time.Now()
	pong, err := s.rdb.Ping(ctx).Result()
	health.Latency = time.Since(start)
	if err != nil {
		health.Status = StatusUnhealthy
		health.Errors = append(health.Errors, fmt.Sprintf("ping: %v", err))
		return health
	}
	if pong != "PONG" {
		health.Status = StatusUnhealthy
		health.Errors = append(health.Errors, fmt.Sprintf("unexpected ping reply %q", pong))
		return health
	}

	info, err := s.rdb.Info(ctx, "memory").Result()
	if err != nil {
		// Ping succeeded, so the store is serving; introspection failure
		// alone is only worth a warning.
		health.Status = StatusWarning
		health.Errors = append(health.Errors, fmt.Sprintf("info memory: %v", err))
		return health
	}

	used := parseInfoInt(info, "used_memory")
	max := parseInfoInt(info, "maxmemory")
	if max > 0 && s.config.MemoryWarnRatio > 0 {
		ratio := float64(used) / float64(max)
		if ratio >= s.config.MemoryWarnRatio {
			health.Status = StatusWarning
			health.Errors = append(health.Errors,
				fmt.Sprintf("memory usage %.0f%% of maxmemory", ratio*100))
		}
	}
	return health
}

// GetStats collects store memory/keyspace introspection plus the overall
// hit rate from this instance's counters.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	defer s.observe("stats", time.Now())

	stats := Stats{HitRate: s.HitRate()}

	memInfo, err := s.rdb.Info(ctx, "memory").Result()
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return stats, storeErr("info memory", err)
	}
	stats.MemoryUsedBytes = parseInfoInt(memInfo, "used_memory")

	ksInfo, err := s.rdb.Info(ctx, "keyspace").Result()
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return stats, storeErr("info keyspace", err)
	}
	stats.KeyCount, stats.AvgTTLSeconds = parseKeyspace(ksInfo)

	return stats, nil
}

// parseInfoInt extracts an integer field from INFO text output.
// Lines look like "used_memory:1048576".
func parseInfoInt(info, field string) int64 {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, field+":") {
			continue
		}
		value, err := strconv.ParseInt(strings.TrimPrefix(line, field+":"), 10, 64)
		if err != nil {
			return 0
		}
		return value
	}
	return 0
}

// parseKeyspace sums key counts and averages TTLs across databases.
// Lines look like "db0:keys=521,expires=40,avg_ttl=360000" with avg_ttl
// in milliseconds.
func parseKeyspace(info string) (keyCount int64, avgTTLSeconds float64) {
	var ttlSum float64
	var dbCount int

	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "db") {
			continue
		}
		_, fields, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		for _, kv := range strings.Split(fields, ",") {
			name, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			switch name {
			case "keys":
				if n, err := strconv.ParseInt(value, 10, 64); err == nil {
					keyCount += n
				}
			case "avg_ttl":
				if ms, err := strconv.ParseFloat(value, 64); err == nil {
					ttlSum += ms / 1000
					dbCount++
				}
			}
		}
	}
	if dbCount > 0 {
		avgTTLSeconds = ttlSum / float64(dbCount)
	}
	return keyCount, avgTTLSeconds
}
