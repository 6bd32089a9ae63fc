package api

import (
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/internal/cache"
	"github.com/originesmedia/og-prerender/internal/config"
	"github.com/originesmedia/og-prerender/internal/document"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/metatags"
	"github.com/originesmedia/og-prerender/internal/prerender"
	"github.com/originesmedia/og-prerender/internal/route"
	"github.com/originesmedia/og-prerender/internal/sanity"
	"github.com/originesmedia/og-prerender/internal/sitemap"
	"github.com/originesmedia/og-prerender/internal/telemetry"
	"github.com/originesmedia/og-prerender/internal/useragent"
)

// NewSanityClient creates the content lake client shared by the pipeline and
// the sitemap, so both draw from one rate budget and one circuit breaker.
func NewSanityClient(cfg *config.Config, tel *telemetry.Provider) *sanity.Client {
	return sanity.NewClient(sanity.Config{
		ProjectID:       cfg.Sanity.ProjectID,
		Dataset:         cfg.Sanity.Dataset,
		APIVersion:      cfg.Sanity.APIVersion,
		Token:           cfg.Sanity.Token,
		UseCDN:          cfg.Sanity.UseCDN,
		Endpoint:        cfg.Sanity.Endpoint,
		Timeout:         cfg.Sanity.Timeout,
		RateLimit:       cfg.Sanity.RateLimit,
		RateBurst:       cfg.Sanity.RateBurst,
		BreakerFailures: cfg.Sanity.BreakerFailures,
		BreakerTimeout:  cfg.Sanity.BreakerTimeout,
	}, sanity.WithTelemetry(tel))
}

// NewPipeline wires the prerender pipeline from configuration. A nil
// redisClient disables the metadata cache.
func NewPipeline(
	cfg *config.Config,
	log logger.Logger,
	tel *telemetry.Provider,
	client *sanity.Client,
	redisClient *redis.Client,
) *prerender.Pipeline {
	var metadata domain.MetadataFetcher = client

	if redisClient != nil {
		metadata = cache.New(metadata, redisClient, cache.Config{
			TTL:         cfg.Cache.TTL,
			NotFoundTTL: cfg.Cache.NotFoundTTL,
			KeyPrefix:   cfg.Cache.KeyPrefix,
		}, tel.Metrics)
	}

	documents := document.NewFetcher(document.Config{
		IndexPath:    cfg.Document.IndexPath,
		UserAgent:    cfg.Document.UserAgent,
		Timeout:      cfg.Document.Timeout,
		MaxBodyBytes: cfg.Document.MaxBodyBytes,
	}, nil)

	return prerender.NewPipeline(prerender.Options{
		Crawlers:  useragent.NewRegistry(cfg.Crawlers.UserAgents),
		Routes:    route.Matcher{Prefix: cfg.Site.ArticlePrefix},
		Metadata:  metadata,
		Documents: documents,
		Site:      SiteFromConfig(cfg.Site),
		Assembler: prerender.Assembler{
			CacheControl: cfg.Service.CacheControl,
			RobotsTag:    cfg.Service.RobotsTag,
		},
		SelfOrigin: cfg.Document.SelfOrigin,
		Fallback:   document.FallbackTemplate,
		Reporter:   prerender.NewLogReporter(log, tel.Metrics),
		Telemetry:  tel,
	})
}

// NewSitemap wires the /sitemap.xml generator.
func NewSitemap(cfg *config.Config, log logger.Logger, tel *telemetry.Provider, client *sanity.Client) *sitemap.Generator {
	return sitemap.New(client, sitemap.Config{
		BaseURL:      cfg.Sitemap.BaseURL,
		CacheControl: cfg.Service.CacheControl,
	}, log, tel.Metrics)
}

// SiteFromConfig converts the site section into a metatags.Site.
func SiteFromConfig(s config.SiteConfig) metatags.Site {
	return metatags.Site{
		DefaultTitle:       s.DefaultTitle,
		DefaultDescription: s.DefaultDescription,
		DefaultImage:       s.DefaultImage,
		SiteName:           s.Name,
		Locale:             s.Locale,
		TwitterSite:        s.TwitterSite,
		Origin:             strings.TrimSuffix(s.Origin, "/"),
		ArticlePrefix:      s.ArticlePrefix,
		ImageWidth:         s.ImageWidth,
		ImageHeight:        s.ImageHeight,
	}
}
