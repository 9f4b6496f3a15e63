package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/market-cache/pkg/cache"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		redisC.Terminate(ctx)
	}

	return redisClient, cleanup
}

func TestHealthEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := cache.New(redisClient, cache.DefaultConfig())
	handler := healthHandler(svc)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health cache.Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health payload: %v", err)
	}
	if health.Status != cache.StatusHealthy {
		t.Errorf("Expected healthy, got %s", health.Status)
	}
}

func TestHealthEndpoint_RedisDown(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:1"})
	defer redisClient.Close()

	svc := cache.New(redisClient, cache.DefaultConfig())
	handler := healthHandler(svc)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Result().StatusCode)
	}
}

func TestReadyEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	handler := readyHandler(redisClient)

	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
		if string(body) != "OK" {
			t.Errorf("Expected body 'OK', got %s", string(body))
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		// Close Redis to simulate failure
		redisClient.Close()

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Result().StatusCode != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Result().StatusCode)
		}
	})
}

func TestStatsEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	svc := cache.New(redisClient, cache.DefaultConfig())
	ctx := context.Background()

	_ = svc.Set(ctx, "quote:AAPL", "v")
	var out string
	_, _ = svc.Get(ctx, "quote:AAPL", &out)

	handler := statsHandler(svc)
	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var payload struct {
		cache.Stats
		Patterns []cache.PatternStats `json:"patterns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode stats payload: %v", err)
	}
	if payload.HitRate != 1.0 {
		t.Errorf("Expected hit rate 1.0, got %f", payload.HitRate)
	}
	if len(payload.Patterns) == 0 {
		t.Error("Expected pattern stats")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	// Exercise the cache so its metrics are registered and populated.
	svc := cache.New(redisClient, cache.DefaultConfig())
	ctx := context.Background()
	_ = svc.Set(ctx, "quote:AAPL", "v")
	var out string
	_, _ = svc.Get(ctx, "quote:AAPL", &out)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler := promhttp.Handler()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "mdcache_hits_total") {
		t.Error("Expected metrics output to contain mdcache_hits_total")
	}
}
