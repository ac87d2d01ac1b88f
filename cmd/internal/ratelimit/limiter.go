// Package ratelimit provides per-key request limiters and cooldowns for the public API,
// backed by process memory or Redis.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

const (
	defaultLimit  = 30
	defaultWindow = time.Minute
)

// Limiter reports whether one more event for key is allowed. When it is not, retryAfter
// is how long until the key may be tried again.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (ok bool, retryAfter time.Duration, err error)
}

// Cooldown grants key at most once per ttl. When refused, remaining is the time left.
// Release gives a granted key back early, e.g. when the guarded action was rejected.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ok bool, remaining time.Duration, err error)
	Release(ctx context.Context, key string) error
}

// Key joins non-empty parts into a namespaced key.
func Key(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}
