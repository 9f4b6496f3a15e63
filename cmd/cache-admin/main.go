package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/market-cache/pkg/cache"
	"github.com/Sternrassler/market-cache/pkg/logging"
)

func main() {
	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	// Ping Redis
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Printf("Connected to Redis at %s", redisURL)

	svc := cache.New(redisClient, cache.DefaultConfig())

	// HTTP Server
	http.HandleFunc("/health", healthHandler(svc))
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.HandleFunc("/stats", statsHandler(svc))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Printf("Starting cache admin server on %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// healthHandler reports the cache health probe as JSON. Warning status
// still returns 200 so orchestrators don't restart a degraded-but-serving
// cache; unhealthy returns 503.
func healthHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := svc.HealthCheck(ctx)

		w.Header().Set("Content-Type", "application/json")
		if health.Status == cache.StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, fmt.Sprintf("Redis not ready: %v", err), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func statsHandler(svc *cache.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats, err := svc.GetStats(ctx)
		if err != nil {
			http.Error(w, fmt.Sprintf("Stats unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}

		payload := struct {
			cache.Stats
			Patterns []cache.PatternStats `json:"patterns"`
		}{Stats: stats, Patterns: svc.PatternStats()}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
