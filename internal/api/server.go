// Package api assembles the og-prerender HTTP server.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	infragin "github.com/originesmedia/og-prerender/infrastructure/gin"
	infralogger "github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/infrastructure/metrics"
	"github.com/originesmedia/og-prerender/internal/config"
	"github.com/originesmedia/og-prerender/internal/prerender"
	"github.com/originesmedia/og-prerender/internal/sitemap"
	"github.com/originesmedia/og-prerender/internal/spa"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Deps are the components the server routes to.
type Deps struct {
	Pipeline *prerender.Pipeline
	// Sitemap serves /sitemap.xml when set.
	Sitemap *sitemap.Generator
	// SPA may be nil when no build is available.
	SPA *spa.Handler
	// Registry receives the HTTP metrics and backs /metrics.
	Registry *prometheus.Registry
	// RedisPing adds a Redis health check when set.
	RedisPing func() error
}

// NewServer creates the HTTP server.
func NewServer(cfg *config.Config, log infralogger.Logger, deps Deps) *infragin.Server {
	httpMetrics := metrics.NewHTTPMetrics("og_prerender", deps.Registry)

	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithMiddleware(httpMetrics.Middleware(), prerender.Middleware(deps.Pipeline)).
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, deps.Registry, deps.Sitemap, deps.SPA)
		})

	if deps.RedisPing != nil {
		builder = builder.WithRedisHealthCheck(deps.RedisPing)
	}

	return builder.Build()
}

// ReservedPrefixes lists the paths the SPA handler must not serve.
func ReservedPrefixes() []string {
	return append([]string(nil), reservedPrefixes...)
}
