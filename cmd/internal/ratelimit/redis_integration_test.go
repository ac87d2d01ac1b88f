package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Integration tests are enabled when MUTABAKAT_REDIS_ADDR is set.

func TestRedisLimiter_Allow(t *testing.T) {
	t.Parallel()

	client := mustOpenTestRedis(t)
	prefix := testPrefix(t)
	ctx := context.Background()

	rl := NewRedisLimiter(client, prefix, 2, 2*time.Second)
	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(ctx, "ip", time.Now())
		if err != nil || !ok {
			t.Fatalf("expected allow at %d, got ok=%v err=%v", i, ok, err)
		}
	}
	ok, retry, err := rl.Allow(ctx, "ip", time.Now())
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok || retry <= 0 || retry > 2*time.Second {
		t.Fatalf("expected refusal with retry in (0,2s], got ok=%v retry=%v", ok, retry)
	}
}

func TestRedisCooldown_Acquire(t *testing.T) {
	t.Parallel()

	client := mustOpenTestRedis(t)
	prefix := testPrefix(t)
	ctx := context.Background()

	c := NewRedisCooldown(client, prefix)
	ok, _, err := c.Acquire(ctx, "otp:ref", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected first acquire, got ok=%v err=%v", ok, err)
	}
	ok, remaining, err := c.Acquire(ctx, "otp:ref", 5*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok || remaining <= 0 || remaining > 5*time.Second {
		t.Fatalf("expected refusal with remaining in (0,5s], got ok=%v remaining=%v", ok, remaining)
	}
}

func TestRedisCooldown_Release(t *testing.T) {
	t.Parallel()

	client := mustOpenTestRedis(t)
	prefix := testPrefix(t)
	ctx := context.Background()

	c := NewRedisCooldown(client, prefix)
	if ok, _, err := c.Acquire(ctx, "otp:ref", 5*time.Second); err != nil || !ok {
		t.Fatalf("expected first acquire, got ok=%v err=%v", ok, err)
	}
	if err := c.Release(ctx, "otp:ref"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _, err := c.Acquire(ctx, "otp:ref", 5*time.Second); err != nil || !ok {
		t.Fatalf("expected acquire after release, got ok=%v err=%v", ok, err)
	}
}

func mustOpenTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := strings.TrimSpace(os.Getenv("MUTABAKAT_REDIS_ADDR"))
	if addr == "" {
		t.Skip("integration test skipped: MUTABAKAT_REDIS_ADDR is not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if os.Getenv("CI") == "" {
			t.Skipf("integration test skipped: Redis unreachable (MUTABAKAT_REDIS_ADDR set): %v", err)
		}
		t.Fatalf("ping redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testPrefix(t *testing.T) string {
	t.Helper()
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return "mutabakat_it_" + hex.EncodeToString(b[:])
}
