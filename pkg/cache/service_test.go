package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/market-cache/pkg/codec"
)

// setupTestRedis creates a test Redis client. For unit tests we connect
// to a local instance and skip when unavailable; tests/integration uses
// testcontainers-go with a real containerized Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(setupTestRedis(t), DefaultConfig())
}

type testQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestNew_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New should panic with nil redis client")
		}
	}()
	New(nil, DefaultConfig())
}

func TestService_SetAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := testQuote{Symbol: "AAPL", Price: 232.15}
	if err := svc.Set(ctx, "quote:AAPL", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out testQuote
	found, err := svc.Get(ctx, "quote:AAPL", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Expected cache hit")
	}
	if out != in {
		t.Errorf("Value mismatch: got %+v, want %+v", out, in)
	}
}

func TestService_Get_Miss(t *testing.T) {
	svc := newTestService(t)

	var out testQuote
	found, err := svc.Get(context.Background(), "quote:NOPE", &out)
	if err != nil {
		t.Fatalf("Get on miss must not error, got %v", err)
	}
	if found {
		t.Error("Expected cache miss")
	}
}

func TestService_Set_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := testQuote{Symbol: "TSLA", Price: 411.02}
	if err := svc.Set(ctx, "quote:TSLA", in); err != nil {
		t.Fatalf("First Set failed: %v", err)
	}
	if err := svc.Set(ctx, "quote:TSLA", in); err != nil {
		t.Fatalf("Second Set failed: %v", err)
	}

	var out testQuote
	if _, err := svc.Get(ctx, "quote:TSLA", &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out != in {
		t.Errorf("Value mismatch after double Set: got %+v, want %+v", out, in)
	}
}

func TestService_TTLExpiry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Set(ctx, "quote:EXP", testQuote{Symbol: "EXP", Price: 1}, WithTTL(1*time.Second)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out testQuote
	found, err := svc.Get(ctx, "quote:EXP", &out)
	if err != nil || !found {
		t.Fatalf("Expected hit within TTL, found=%v err=%v", found, err)
	}

	time.Sleep(1500 * time.Millisecond)

	found, err = svc.Get(ctx, "quote:EXP", &out)
	if err != nil {
		t.Fatalf("Get after expiry failed: %v", err)
	}
	if found {
		t.Error("Expected miss after TTL expiry")
	}
}

func TestService_CompressionRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	value := strings.Repeat("x", 2000)
	if err := svc.Set(ctx, "quote:BIG", value, WithCompressionThreshold(1000)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Raw stored bytes must carry the compression sentinel.
	raw, err := svc.rdb.Get(ctx, "quote:BIG").Bytes()
	if err != nil {
		t.Fatalf("Raw read failed: %v", err)
	}
	if !codec.IsCompressed(raw) {
		t.Error("Expected stored payload to carry compression sentinel")
	}

	var out string
	found, err := svc.Get(ctx, "quote:BIG", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || out != value {
		t.Error("Compressed round trip did not return the original value")
	}
}

func TestService_Get_CorruptPayload(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// Write bytes that are neither valid JSON nor a valid envelope.
	if err := svc.rdb.Set(ctx, "quote:BAD", codec.CompressionSentinel+"!!!", time.Minute).Err(); err != nil {
		t.Fatalf("Raw write failed: %v", err)
	}

	var out testQuote
	_, err := svc.Get(ctx, "quote:BAD", &out)
	if err == nil {
		t.Fatal("Expected decode error for corrupt payload")
	}
	if !errors.Is(err, codec.ErrDecode) {
		t.Errorf("Expected codec.ErrDecode, got %v", err)
	}
}

func TestService_KeyValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	longKey := strings.Repeat("k", 600)

	if _, err := svc.Get(ctx, longKey, &testQuote{}); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Get: expected ErrKeyTooLong, got %v", err)
	}
	if err := svc.Set(ctx, longKey, "v"); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Set: expected ErrKeyTooLong, got %v", err)
	}
	if _, err := svc.Del(ctx, longKey); !errors.Is(err, ErrKeyTooLong) {
		t.Errorf("Del: expected ErrKeyTooLong, got %v", err)
	}
}

func TestService_DelAndExpire(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_ = svc.Set(ctx, "quote:A", "a")
	_ = svc.Set(ctx, "quote:B", "b")

	count, err := svc.Del(ctx, "quote:A", "quote:B", "quote:MISSING")
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 deleted, got %d", count)
	}

	_ = svc.Set(ctx, "quote:C", "c")
	ok, err := svc.Expire(ctx, "quote:C", 1*time.Second)
	if err != nil || !ok {
		t.Fatalf("Expire failed: ok=%v err=%v", ok, err)
	}
	ok, err = svc.Expire(ctx, "quote:MISSING", 1*time.Second)
	if err != nil {
		t.Fatalf("Expire on missing key failed: %v", err)
	}
	if ok {
		t.Error("Expire on missing key should return false")
	}
}

func TestService_ExpireSubSecondTTL(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_ = svc.Set(ctx, "quote:SUB", "v")

	// A fractional TTL must round up, never truncate to EXPIRE 0 (which
	// Redis treats as an immediate delete).
	ok, err := svc.Expire(ctx, "quote:SUB", 500*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("Expire failed: ok=%v err=%v", ok, err)
	}

	var out string
	found, err := svc.Get(ctx, "quote:SUB", &out)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("Key deleted by sub-second Expire")
	}

	ttl, err := svc.rdb.TTL(ctx, "quote:SUB").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("Expected TTL rounded up to 1s, got %v", ttl)
	}

	if _, err := svc.Expire(ctx, "quote:SUB", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Expire(0): expected ErrInvalidTTL, got %v", err)
	}
	if _, err := svc.Expire(ctx, "quote:SUB", -time.Second); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("Expire(-1s): expected ErrInvalidTTL, got %v", err)
	}
}

func TestService_HitRateTracking(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_ = svc.Set(ctx, "quote:HIT", "v")

	var out string
	_, _ = svc.Get(ctx, "quote:HIT", &out)  // hit
	_, _ = svc.Get(ctx, "quote:MISS", &out) // miss

	if rate := svc.HitRate(); rate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", rate)
	}

	stats := svc.PatternStats()
	if len(stats) == 0 {
		t.Fatal("Expected pattern stats")
	}

	svc.ResetStats()
	if rate := svc.HitRate(); rate != 0 {
		t.Errorf("Expected hit rate 0 after reset, got %f", rate)
	}
}
