package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/infrastructure/profiling"
	infraredis "github.com/originesmedia/og-prerender/infrastructure/redis"
	"github.com/originesmedia/og-prerender/internal/api"
	"github.com/originesmedia/og-prerender/internal/spa"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	profiling.StartPprofServer(log)
	profiler, err := profiling.StartPyroscope(cfg.Service.Name, cfg.Service.Version, log)
	if err != nil {
		log.Warn("Continuous profiling unavailable", logger.Error(err))
	}
	defer func() { _ = profiler.Stop() }()

	redisClient, err := connectRedis(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to Redis", logger.Error(err))
		return err
	}
	deps := api.Deps{}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		deps.RedisPing = infraredis.Pinger(redisClient)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := telemetry.NewProvider(reg)

	sanityClient := api.NewSanityClient(cfg, tel)

	deps.Registry = reg
	deps.Pipeline = api.NewPipeline(cfg, log, tel, sanityClient, redisClient)
	deps.Sitemap = api.NewSitemap(cfg, log, tel, sanityClient)
	deps.SPA = loadSPA(cfg.SPA.DistDir, log)

	server := api.NewServer(cfg, log, deps)

	log.Info("og-prerender starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("site", cfg.Site.Origin),
		logger.Bool("cache", redisClient != nil),
	)

	if runErr := server.Run(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return runErr
	}

	log.Info("og-prerender exited cleanly")
	return nil
}

// loadSPA returns nil when the build directory has no index.html; the
// server then answers unmatched paths with 404.
func loadSPA(dir string, log logger.Logger) *spa.Handler {
	handler, err := spa.NewHandler(os.DirFS(dir), api.ReservedPrefixes()...)
	if err != nil {
		if errors.Is(err, spa.ErrMissingIndex) {
			log.Warn("SPA build not found, static serving disabled", logger.String("dist_dir", dir))
		} else {
			log.Warn("SPA handler unavailable", logger.String("dist_dir", dir), logger.Error(err))
		}
		return nil
	}
	return handler
}
