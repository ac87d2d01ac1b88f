// Command mutabakatctl is the operator tool for the link service: schema setup,
// link issuance and inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/app"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/mailer"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var Version = "dev"

type globals struct {
	schema   string
	logLevel string
}

func main() {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "mutabakatctl",
		Short:         "Operator tool for reconciliation links",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.LoadDotEnv()
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.schema, "schema", "", "database schema (default MUTABAKAT_DB_SCHEMA or \"mutabakat\")")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level for diagnostics on stderr")

	rootCmd.AddCommand(migrateCmd(g))
	rootCmd.AddCommand(linkCmd(g))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is the database-backed wiring shared by subcommands.
type env struct {
	cfg  app.Config
	log  app.Logger
	pool *pgxpool.Pool
}

func openEnv(ctx context.Context, g *globals) (*env, error) {
	cfg := app.LoadConfig()
	if g.schema != "" {
		cfg.DBSchema = g.schema
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("MUTABAKAT_DATABASE_URL is required")
	}
	if err := app.ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	log := app.NewLoggerTo(os.Stderr, g.logLevel, "pretty")

	pool, err := app.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &env{cfg: cfg, log: log, pool: pool}, nil
}

func (e *env) close() { e.pool.Close() }

func (e *env) service() (*reconlink.Service, error) {
	st, err := reconlink.NewPostgresStore(e.pool, reconlink.WithSchema(e.cfg.DBSchema))
	if err != nil {
		return nil, err
	}
	sender, err := mailer.New(mailer.LoadConfigFromEnv(), e.log)
	if err != nil {
		return nil, err
	}

	linkCfg := reconlink.LoadConfigFromEnv()
	if e.cfg.PublicBaseURL != "" {
		linkCfg.PublicBaseURL = e.cfg.PublicBaseURL
	}
	return reconlink.NewService(st, st,
		reconlink.WithConfig(linkCfg),
		reconlink.WithLogger(e.log),
		reconlink.WithMailer(sender),
		reconlink.WithLinkMailer(sender),
	)
}
