package app

import (
	"context"
	"errors"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

// Run is the CLI entrypoint used by cmd/mutabakat.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
func Run() error {
	if err := LoadDotEnv(); err != nil {
		return err
	}

	cfg := LoadConfig()
	if err := ValidateSecurityConfig(cfg); err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}

// LoadDotEnv reads a local .env file if one exists. Variables already set in the
// process environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
