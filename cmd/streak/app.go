package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goodtune/streak/internal/config"
	"github.com/goodtune/streak/internal/persist"
	"github.com/goodtune/streak/internal/storage"
	"github.com/goodtune/streak/internal/storage/bolt"
	"github.com/goodtune/streak/internal/storage/file"
	"github.com/goodtune/streak/internal/storage/mem"
	"github.com/goodtune/streak/internal/storage/redis"
	"github.com/goodtune/streak/internal/storage/sqlite"
	"github.com/goodtune/streak/internal/timer"
	"github.com/goodtune/streak/internal/widget"
	"github.com/rs/zerolog"
)

// loadConfig loads the configuration and applies --ephemeral.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if ephemeral {
		cfg.Storage.Type = config.StorageMemory
	}
	return cfg, nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case config.StorageFile:
		return file.Open(cfg.Path)
	case config.StorageRedis:
		return redis.Open(cfg.Redis, cfg.Key)
	case config.StorageBolt:
		return bolt.Open(cfg.Path)
	case config.StorageSQLite:
		return sqlite.Open(cfg.Path)
	case config.StorageMemory:
		return mem.New(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// mountWidget builds the widget for cfg. The store opens in the background.
func mountWidget(ctx context.Context, cfg *config.Config, logger zerolog.Logger, obs persist.Observer, onChange ...func(timer.Change)) (*widget.Widget, error) {
	policy, err := timer.ParseResetPolicy(cfg.Timer.ResetPolicy)
	if err != nil {
		return nil, err
	}

	storageCfg := cfg.Storage
	opener := func(context.Context) (storage.Store, error) {
		return openStorage(storageCfg)
	}

	return widget.Mount(ctx, widget.Options{
		Timer: timer.Options{
			Interval: cfg.Timer.Interval(),
			Policy:   policy,
		},
		Persist: persist.Options{
			Observer:     obs,
			OpenTimeout:  config.ParseDuration(cfg.Storage.OpenTimeout, 5*time.Second),
			WriteTimeout: config.ParseDuration(cfg.Storage.WriteTimeout, 2*time.Second),
		},
		Opener:    opener,
		Autostart: cfg.Timer.Autostart,
		Logger:    logger,
		OnChange:  onChange,
	}), nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
