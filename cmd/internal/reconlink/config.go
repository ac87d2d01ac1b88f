package reconlink

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the protocol constants. Defaults match the counterparty-facing copy
// (3 attempts, 60 second lock, 5 minute codes).
type Config struct {
	MaxTaxAttempts  int
	LockDuration    time.Duration
	OtpTTL          time.Duration
	LinkTTL         time.Duration
	ReferenceBytes  int
	MaxNoteLength   int
	OtpDigits       int
	PublicBaseURL   string
	PublicLinkRoute string
}

// DefaultConfig returns the standard protocol settings.
func DefaultConfig() Config {
	return Config{
		MaxTaxAttempts:  3,
		LockDuration:    60 * time.Second,
		OtpTTL:          300 * time.Second,
		LinkTTL:         30 * 24 * time.Hour,
		ReferenceBytes:  24,
		MaxNoteLength:   2000,
		OtpDigits:       6,
		PublicBaseURL:   "http://127.0.0.1:8080",
		PublicLinkRoute: "/mutabakat/",
	}
}

// LoadConfigFromEnv reads MUTABAKAT_LINK_* overrides on top of DefaultConfig.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.MaxTaxAttempts = envInt("MUTABAKAT_LINK_MAX_TAX_ATTEMPTS", cfg.MaxTaxAttempts)
	cfg.LockDuration = envDuration("MUTABAKAT_LINK_LOCK_DURATION", cfg.LockDuration)
	cfg.OtpTTL = envDuration("MUTABAKAT_LINK_OTP_TTL", cfg.OtpTTL)
	cfg.LinkTTL = envDuration("MUTABAKAT_LINK_TTL", cfg.LinkTTL)
	if v := strings.TrimSpace(os.Getenv("MUTABAKAT_PUBLIC_BASE_URL")); v != "" {
		cfg.PublicBaseURL = strings.TrimRight(v, "/")
	}
	return cfg.normalized()
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxTaxAttempts <= 0 {
		c.MaxTaxAttempts = def.MaxTaxAttempts
	}
	if c.LockDuration <= 0 {
		c.LockDuration = def.LockDuration
	}
	if c.OtpTTL <= 0 {
		c.OtpTTL = def.OtpTTL
	}
	if c.LinkTTL <= 0 {
		c.LinkTTL = def.LinkTTL
	}
	if c.ReferenceBytes < 16 {
		c.ReferenceBytes = def.ReferenceBytes
	}
	if c.MaxNoteLength <= 0 {
		c.MaxNoteLength = def.MaxNoteLength
	}
	if c.OtpDigits != def.OtpDigits {
		c.OtpDigits = def.OtpDigits
	}
	if strings.TrimSpace(c.PublicLinkRoute) == "" {
		c.PublicLinkRoute = def.PublicLinkRoute
	}
	return c
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

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
