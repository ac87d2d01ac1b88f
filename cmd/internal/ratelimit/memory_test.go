package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_Allow(t *testing.T) {
	t.Parallel()

	rl := NewMemoryLimiter(3, time.Second)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		ok, _, err := rl.Allow(ctx, "ip-a", now)
		if err != nil || !ok {
			t.Fatalf("expected allow at %d, got ok=%v err=%v", i, ok, err)
		}
	}
	ok, retry, _ := rl.Allow(ctx, "ip-a", now)
	if ok {
		t.Fatalf("expected limit exceeded")
	}
	if retry != time.Second {
		t.Fatalf("expected retry after 1s, got %v", retry)
	}

	if ok, _, _ := rl.Allow(ctx, "ip-b", now); !ok {
		t.Fatalf("expected keys to be independent")
	}

	if ok, _, _ := rl.Allow(ctx, "ip-a", now.Add(1100*time.Millisecond)); !ok {
		t.Fatalf("expected allow after window")
	}
}

func TestMemoryLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewMemoryLimiter(0, 0)
	if rl.limit != defaultLimit || rl.window != defaultWindow {
		t.Fatalf("expected defaults, got limit=%d window=%v", rl.limit, rl.window)
	}
}

func TestMemoryCooldown_Acquire(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCooldown()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _, _ := c.Acquire(ctx, "otp:ref", 30*time.Second)
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}

	now = now.Add(10 * time.Second)
	ok, remaining, _ := c.Acquire(ctx, "otp:ref", 30*time.Second)
	if ok || remaining != 20*time.Second {
		t.Fatalf("expected refusal with 20s left, got ok=%v remaining=%v", ok, remaining)
	}

	now = now.Add(20 * time.Second)
	if ok, _, _ := c.Acquire(ctx, "otp:ref", 30*time.Second); !ok {
		t.Fatalf("expected acquire after cooldown")
	}
	if ok, _, _ := c.Acquire(ctx, "other", 0); !ok {
		t.Fatalf("expected zero ttl to always pass")
	}
}

func TestMemoryCooldown_Release(t *testing.T) {
	t.Parallel()

	c := NewMemoryCooldown()
	ctx := context.Background()

	if ok, _, _ := c.Acquire(ctx, "otp:ref", time.Minute); !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if err := c.Release(ctx, "otp:ref"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _, _ := c.Acquire(ctx, "otp:ref", time.Minute); !ok {
		t.Fatalf("expected acquire right after release")
	}
	if err := c.Release(ctx, "never-acquired"); err != nil {
		t.Fatalf("release of unknown key: %v", err)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("mutabakat", " ", "rl", "1.2.3.4"); got != "mutabakat:rl:1.2.3.4" {
		t.Fatalf("unexpected key: %q", got)
	}
}
