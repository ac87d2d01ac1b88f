// Package app wires the reconciliation link server: config, logging, storage, mail,
// rate limiting, metrics and HTTP routes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/mailer"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/metrics"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/publicapi"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/ratelimit"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App owns the HTTP server and every long-lived dependency behind it.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool
	redis     *redis.Client

	metrics *metrics.Collector
	links   *reconlink.Service
	api     *publicapi.Handler
}

// backend is the link store plus the policy source behind it.
type backend struct {
	store    reconlink.Store
	policies reconlink.PolicyResolver
	pool     *pgxpool.Pool
	mem      *reconlink.MemoryStore
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	ctx := context.Background()

	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		be.close()
		return nil, err
	}

	a, err := build(ctx, cfg, log, be, rdb)
	if err != nil {
		be.close()
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg Config, log Logger, be backend, rdb *redis.Client) (*App, error) {
	col := metrics.New()

	sender, err := mailer.New(mailer.LoadConfigFromEnv(), log)
	if err != nil {
		return nil, err
	}

	linkCfg := reconlink.LoadConfigFromEnv()
	linkCfg.PublicBaseURL = cfg.PublicBaseURL
	if linkCfg.PublicBaseURL == "" {
		linkCfg.PublicBaseURL = runtimeBaseURL(cfg.HTTPAddr)
	}

	svc, err := reconlink.NewService(be.store, be.policies,
		reconlink.WithConfig(linkCfg),
		reconlink.WithLogger(log),
		reconlink.WithMailer(sender),
		reconlink.WithLinkMailer(sender),
		reconlink.WithMetrics(col),
	)
	if err != nil {
		return nil, err
	}

	apiCfg := publicapi.LoadConfigFromEnv()
	opts := []publicapi.HandlerOption{publicapi.WithRateObserver(col)}
	if rdb != nil {
		opts = append(opts,
			publicapi.WithLimiter(ratelimit.NewRedisLimiter(rdb, "mutabakat:rl:", apiCfg.RateLimit, apiCfg.RateWindow)),
			publicapi.WithCooldown(ratelimit.NewRedisCooldown(rdb, "mutabakat:cd:")),
		)
		log.Info("ratelimit.redis")
	} else {
		log.Info("ratelimit.inmemory")
	}
	api, err := publicapi.NewHandler(log, svc, apiCfg, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.DevSeed {
		if be.mem == nil {
			log.Warn("dev.seed.skipped", "reason", "database_configured")
		} else if err := seedDev(ctx, be.mem, svc, log); err != nil {
			return nil, err
		}
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    be.pool,
		dbEnabled: be.pool != nil,
		redis:     rdb,
		metrics:   col,
		links:     svc,
		api:       api,
	}, nil
}

// Handler returns the full middleware-wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.redis, a.metrics, a.api)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	return WithRequestLogging(h, a.log, a.metrics)
}

// Links exposes the link service, e.g. for operator tooling sharing this wiring.
func (a *App) Links() *reconlink.Service { return a.links }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbEnabled,
		"redis_enabled", a.redis != nil,
		"public_base_url", a.links.Config().PublicBaseURL,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.Close()
	a.log.Info("server.stopped")
	return nil
}

// Close releases the database pool and Redis client.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newBackend decides between Postgres-backed persistence and the in-memory dev store.
func newBackend(ctx context.Context, cfg Config, log Logger) (backend, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		mem := reconlink.NewMemoryStore()
		return backend{store: mem, policies: mem, mem: mem}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return backend{}, err
	}

	if cfg.DBAutoMigrate {
		if err := reconlink.ApplySchema(ctx, pool, cfg.DBSchema); err != nil {
			pool.Close()
			return backend{}, err
		}
		log.Info("db.schema.applied", "schema", cfg.DBSchema)
	}

	// The app owns the pool; PostgresStore only borrows it.
	st, err := reconlink.NewPostgresStore(pool, reconlink.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return backend{}, err
	}

	log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
	return backend{store: st, policies: st, pool: pool}, nil
}

func (b backend) close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// runtimeBaseURL turns a listen address into a URL a local browser can open.
// Wildcard binds map to loopback.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
