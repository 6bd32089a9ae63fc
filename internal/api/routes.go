package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/originesmedia/og-prerender/internal/sitemap"
	"github.com/originesmedia/og-prerender/internal/spa"
)

const sitemapPath = "/sitemap.xml"

// Paths never handed to the SPA.
var reservedPrefixes = []string{"/health", "/metrics", sitemapPath}

// SetupRoutes registers /metrics, /sitemap.xml and the SPA fallback. Health
// routes are registered by the infrastructure gin builder. A nil spaHandler
// answers 404 for everything the prerender middleware lets through; a nil
// generator leaves /sitemap.xml unrouted.
func SetupRoutes(
	router *gin.Engine,
	gatherer prometheus.Gatherer,
	generator *sitemap.Generator,
	spaHandler *spa.Handler,
) {
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if generator != nil {
		router.GET(sitemapPath, generator.Handle)
		router.HEAD(sitemapPath, generator.Handle)
	}

	if spaHandler == nil {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
		return
	}
	router.NoRoute(spaHandler.Handle)
}
