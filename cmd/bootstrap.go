package cmd

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	infraredis "github.com/originesmedia/og-prerender/infrastructure/redis"
	"github.com/originesmedia/og-prerender/infrastructure/retry"
	"github.com/originesmedia/og-prerender/internal/config"
)

// loadConfig loads and validates configuration.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration. outputs
// overrides the configured sinks when set.
func createLogger(cfg *config.Config, outputs ...string) (logger.Logger, error) {
	logCfg := logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
		OutputPaths: outputs,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
	), nil
}

// connectRedis returns nil when the metadata cache is disabled.
func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*goredis.Client, error) {
	if !cfg.Cache.Enabled {
		return nil, nil //nolint:nilnil // cache disabled
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("Redis not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	var client *goredis.Client
	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		c, connErr := infraredis.NewClient(ctx, cfg.Redis)
		if connErr != nil {
			return connErr
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info("Redis connected",
		logger.String("address", cfg.Redis.Address),
		logger.Int("db", cfg.Redis.DB),
	)
	return client, nil
}
