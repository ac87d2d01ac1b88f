package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL   string
	DBSchema      string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Redis backs the shared rate limiter and OTP resend cooldown. Empty means in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Security policy:
	// If true, MUTABAKAT_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and reference fingerprints must be HMAC-based.
	RequireTokenHMAC bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	// PublicBaseURL prefixes issued link URLs. Empty derives it from HTTPAddr.
	PublicBaseURL string

	// DevSeed fills the in-memory store with demo links. Ignored when a database is configured.
	DevSeed bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("MUTABAKAT_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("MUTABAKAT_LOG_LEVEL", "info"),
		LogFormat: EnvString("MUTABAKAT_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("MUTABAKAT_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("MUTABAKAT_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("MUTABAKAT_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("MUTABAKAT_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("MUTABAKAT_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("MUTABAKAT_DATABASE_URL", ""),
		DBSchema:      EnvString("MUTABAKAT_DB_SCHEMA", "mutabakat"),
		DBMaxConns:    EnvInt32("MUTABAKAT_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("MUTABAKAT_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("MUTABAKAT_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("MUTABAKAT_READINESS_REQUIRE_DB", false),

		RedisAddr:     EnvString("MUTABAKAT_REDIS_ADDR", ""),
		RedisPassword: EnvString("MUTABAKAT_REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("MUTABAKAT_REDIS_DB", 0),

		RequireTokenHMAC: EnvBool("MUTABAKAT_REQUIRE_TOKEN_HMAC", false),

		CORSAllowedOrigins:   EnvList("MUTABAKAT_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("MUTABAKAT_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("MUTABAKAT_CORS_MAX_AGE_SECONDS", 600),

		PublicBaseURL: EnvString("MUTABAKAT_PUBLIC_BASE_URL", ""),

		DevSeed: EnvBool("MUTABAKAT_DEV_SEED", false),
	}
}
