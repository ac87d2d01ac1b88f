package publicapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls public API behavior and abuse limits.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// RateLimit requests per RateWindow per client IP on the POST endpoints.
	RateLimit  int
	RateWindow time.Duration

	// OtpResendCooldown is the minimum spacing between explicit OTP requests per link.
	OtpResendCooldown time.Duration
}

// DefaultConfig returns the standard API settings.
func DefaultConfig() Config {
	return Config{
		TrustProxy:        false,
		MaxBodyBytes:      16 << 10,
		RateLimit:         30,
		RateWindow:        time.Minute,
		OtpResendCooldown: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:        envBool("MUTABAKAT_API_TRUST_PROXY", def.TrustProxy),
		MaxBodyBytes:      envInt64("MUTABAKAT_API_MAX_BODY_BYTES", def.MaxBodyBytes),
		RateLimit:         envInt("MUTABAKAT_API_RATE_LIMIT", def.RateLimit),
		RateWindow:        envDuration("MUTABAKAT_API_RATE_WINDOW", def.RateWindow),
		OtpResendCooldown: envDuration("MUTABAKAT_API_OTP_RESEND_COOLDOWN", def.OtpResendCooldown),
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	// Keep the body cap sane even when misconfigured; requests here are tiny.
	if c.MaxBodyBytes > 1<<20 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.RateLimit <= 0 {
		c.RateLimit = def.RateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = def.RateWindow
	}
	if c.OtpResendCooldown < 0 {
		c.OtpResendCooldown = 0
	}
	return c
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}
