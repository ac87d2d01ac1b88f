package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a per-key sliding-window limiter for single-instance deployments.
type MemoryLimiter struct {
	mu     sync.Mutex
	keys   map[string][]time.Time
	limit  int
	window time.Duration
	sweeps int
}

// NewMemoryLimiter constructs a MemoryLimiter with safe defaults when inputs are invalid.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &MemoryLimiter{
		keys:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter.
func (r *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (bool, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cut := now.Add(-r.window)
	events := prune(r.keys[key], cut)

	r.sweeps++
	if r.sweeps >= 1024 {
		r.sweeps = 0
		for k, ev := range r.keys {
			if k == key {
				continue
			}
			if ev = prune(ev, cut); len(ev) == 0 {
				delete(r.keys, k)
			} else {
				r.keys[k] = ev
			}
		}
	}

	if len(events) >= r.limit {
		r.keys[key] = events
		return false, events[0].Add(r.window).Sub(now), nil
	}
	r.keys[key] = append(events, now)
	return true, 0, nil
}

func prune(events []time.Time, cut time.Time) []time.Time {
	dst := events[:0]
	for _, t := range events {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	return dst
}

// MemoryCooldown is an in-process Cooldown.
type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryCooldown constructs an empty MemoryCooldown.
func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: make(map[string]time.Time), now: time.Now}
}

// Acquire implements Cooldown.
func (c *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	if ttl <= 0 {
		return true, 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if until, ok := c.until[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	c.until[key] = now.Add(ttl)
	if len(c.until) > 4096 {
		for k, u := range c.until {
			if !now.Before(u) {
				delete(c.until, k)
			}
		}
	}
	return true, 0, nil
}

// Release implements Cooldown.
func (c *MemoryCooldown) Release(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, key)
	return nil
}
