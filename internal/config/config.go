// Package config defines the og-prerender service configuration.
package config

import (
	"strings"
	"time"

	infraconfig "github.com/originesmedia/og-prerender/infrastructure/config"
)

// Default configuration values.
const (
	defaultServiceName  = "og-prerender"
	defaultServicePort  = 8080
	defaultVersion      = "0.1.0"
	defaultCacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"
	defaultRobotsTag    = "index, follow"

	defaultSiteTitle       = "Origines Media - La profondeur du récit"
	defaultSiteDescription = "Une expérience média premium pour les chercheurs de sens. Découvrez des récits authentiques et des univers narratifs profonds."
	defaultSiteImage       = "https://origines.media/og-image.png"
	defaultSiteName        = "Origines Media"
	defaultSiteLocale      = "fr_FR"
	defaultTwitterSite     = "@originesmedia"
	defaultSiteOrigin      = "https://origines.media"
	defaultArticlePrefix   = "/article/"
	defaultImageWidth      = 1200
	defaultImageHeight     = 630

	defaultSanityProjectID  = "r941i081"
	defaultSanityDataset    = "production"
	defaultSanityAPIVersion = "2024-03-01"
	defaultSanityTimeout    = 3 * time.Second
	defaultSanityRateLimit  = 20
	defaultSanityRateBurst  = 40
	defaultBreakerFailures  = 5
	defaultBreakerTimeout   = 30 * time.Second

	defaultIndexPath    = "/index.html"
	defaultDocTimeout   = 3 * time.Second
	defaultMaxBodyBytes = 2 << 20

	defaultCacheTTL         = 10 * time.Minute
	defaultCacheNotFoundTTL = time.Minute
	defaultCacheKeyPrefix   = "og-prerender:meta:"

	defaultDistDir = "dist"

	defaultLoggingLevel = "info"
	defaultLoggingFmt   = "json"
)

// DefaultCrawlers are the link-preview crawlers served prerendered pages.
var DefaultCrawlers = []string{
	"facebookexternalhit",
	"Facebot",
	"Twitterbot",
	"LinkedInBot",
	"WhatsApp",
	"TelegramBot",
	"Slackbot",
	"Discordbot",
	"SkypeUriPreview",
	"pinterest",
	"redditbot",
}

// Config holds the application configuration.
type Config struct {
	Service  ServiceConfig             `yaml:"service"`
	Site     SiteConfig                `yaml:"site"`
	Crawlers CrawlersConfig            `yaml:"crawlers"`
	Sanity   SanityConfig              `yaml:"sanity"`
	Document DocumentConfig            `yaml:"document"`
	Cache    CacheConfig               `yaml:"cache"`
	Redis    infraconfig.RedisConfig   `yaml:"redis"`
	SPA      SPAConfig                 `yaml:"spa"`
	Sitemap  SitemapConfig             `yaml:"sitemap"`
	Logging  infraconfig.LoggingConfig `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name         string `yaml:"name"`
	Version      string `env:"APP_VERSION"       yaml:"version"`
	Port         int    `env:"OG_PRERENDER_PORT" yaml:"port"`
	Debug        bool   `env:"APP_DEBUG"         yaml:"debug"`
	CacheControl string `yaml:"cache_control"`
	RobotsTag    string `yaml:"robots_tag"`
}

// SiteConfig holds the values rendered into link-preview tags.
type SiteConfig struct {
	DefaultTitle       string `yaml:"default_title"`
	DefaultDescription string `yaml:"default_description"`
	DefaultImage       string `yaml:"default_image"`
	Name               string `yaml:"name"`
	Locale             string `yaml:"locale"`
	TwitterSite        string `yaml:"twitter_site"`
	Origin             string `env:"OG_PRERENDER_SITE_ORIGIN" yaml:"origin"`
	ArticlePrefix      string `yaml:"article_prefix"`
	ImageWidth         int    `yaml:"image_width"`
	ImageHeight        int    `yaml:"image_height"`
}

// CrawlersConfig lists the User-Agent substrings treated as crawlers.
type CrawlersConfig struct {
	UserAgents []string `env:"OG_PRERENDER_CRAWLERS" yaml:"user_agents"`
}

// SanityConfig holds Sanity content lake settings.
type SanityConfig struct {
	ProjectID       string        `env:"SANITY_PROJECT_ID"  yaml:"project_id"`
	Dataset         string        `env:"SANITY_DATASET"     yaml:"dataset"`
	APIVersion      string        `env:"SANITY_API_VERSION" yaml:"api_version"`
	Token           string        `env:"SANITY_TOKEN"       yaml:"token"`
	UseCDN          bool          `env:"SANITY_USE_CDN"     yaml:"use_cdn"`
	Endpoint        string        `env:"SANITY_ENDPOINT"    yaml:"endpoint"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout"`
}

// DocumentConfig configures the SPA shell self-fetch.
type DocumentConfig struct {
	IndexPath    string        `yaml:"index_path"`
	UserAgent    string        `yaml:"user_agent"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	// SelfOrigin replaces the request origin, e.g. http://127.0.0.1:8080.
	SelfOrigin string `env:"OG_PRERENDER_SELF_ORIGIN" yaml:"self_origin"`
}

// CacheConfig configures the Redis metadata cache.
type CacheConfig struct {
	Enabled     bool          `env:"OG_PRERENDER_CACHE_ENABLED" yaml:"enabled"`
	TTL         time.Duration `yaml:"ttl"`
	NotFoundTTL time.Duration `yaml:"not_found_ttl"`
	KeyPrefix   string        `yaml:"key_prefix"`
}

// SitemapConfig configures /sitemap.xml.
type SitemapConfig struct {
	// BaseURL prefixes every location. Defaults to site.origin.
	BaseURL string `env:"OG_PRERENDER_SITEMAP_BASE_URL" yaml:"base_url"`
}

// SPAConfig configures static serving of the SPA build.
type SPAConfig struct {
	DistDir string `env:"OG_PRERENDER_DIST_DIR" yaml:"dist_dir"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, SetDefaults)
}

// SetDefaults applies default values to the config.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setSiteDefaults(&cfg.Site)
	if len(cfg.Crawlers.UserAgents) == 0 {
		cfg.Crawlers.UserAgents = append([]string(nil), DefaultCrawlers...)
	}
	setSanityDefaults(&cfg.Sanity)
	setDocumentDefaults(&cfg.Document, cfg.Service)
	setCacheDefaults(&cfg.Cache)
	cfg.Redis.SetDefaults()
	if cfg.SPA.DistDir == "" {
		cfg.SPA.DistDir = defaultDistDir
	}
	if cfg.Sitemap.BaseURL == "" {
		cfg.Sitemap.BaseURL = cfg.Site.Origin
	}
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(svc *ServiceConfig) {
	if svc.Name == "" {
		svc.Name = defaultServiceName
	}
	if svc.Version == "" {
		svc.Version = defaultVersion
	}
	if svc.Port == 0 {
		svc.Port = defaultServicePort
	}
	if svc.CacheControl == "" {
		svc.CacheControl = defaultCacheControl
	}
	if svc.RobotsTag == "" {
		svc.RobotsTag = defaultRobotsTag
	}
}

func setSiteDefaults(site *SiteConfig) {
	if site.DefaultTitle == "" {
		site.DefaultTitle = defaultSiteTitle
	}
	if site.DefaultDescription == "" {
		site.DefaultDescription = defaultSiteDescription
	}
	if site.DefaultImage == "" {
		site.DefaultImage = defaultSiteImage
	}
	if site.Name == "" {
		site.Name = defaultSiteName
	}
	if site.Locale == "" {
		site.Locale = defaultSiteLocale
	}
	if site.TwitterSite == "" {
		site.TwitterSite = defaultTwitterSite
	}
	if site.Origin == "" {
		site.Origin = defaultSiteOrigin
	}
	site.Origin = strings.TrimSuffix(site.Origin, "/")
	if site.ArticlePrefix == "" {
		site.ArticlePrefix = defaultArticlePrefix
	}
	if site.ImageWidth == 0 {
		site.ImageWidth = defaultImageWidth
	}
	if site.ImageHeight == 0 {
		site.ImageHeight = defaultImageHeight
	}
}

func setSanityDefaults(s *SanityConfig) {
	if s.ProjectID == "" {
		s.ProjectID = defaultSanityProjectID
	}
	if s.Dataset == "" {
		s.Dataset = defaultSanityDataset
	}
	if s.APIVersion == "" {
		s.APIVersion = defaultSanityAPIVersion
	}
	if s.Timeout == 0 {
		s.Timeout = defaultSanityTimeout
	}
	if s.RateLimit == 0 {
		s.RateLimit = defaultSanityRateLimit
	}
	if s.RateBurst == 0 {
		s.RateBurst = defaultSanityRateBurst
	}
	if s.BreakerFailures == 0 {
		s.BreakerFailures = defaultBreakerFailures
	}
	if s.BreakerTimeout == 0 {
		s.BreakerTimeout = defaultBreakerTimeout
	}
}

func setDocumentDefaults(doc *DocumentConfig, svc ServiceConfig) {
	if doc.IndexPath == "" {
		doc.IndexPath = defaultIndexPath
	}
	if doc.UserAgent == "" {
		doc.UserAgent = svc.Name + "/" + svc.Version
	}
	if doc.Timeout == 0 {
		doc.Timeout = defaultDocTimeout
	}
	if doc.MaxBodyBytes == 0 {
		doc.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func setCacheDefaults(c *CacheConfig) {
	if c.TTL == 0 {
		c.TTL = defaultCacheTTL
	}
	if c.NotFoundTTL == 0 {
		c.NotFoundTTL = defaultCacheNotFoundTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultCacheKeyPrefix
	}
}

func setLoggingDefaults(log *infraconfig.LoggingConfig) {
	if log.Level == "" {
		log.Level = defaultLoggingLevel
	}
	if log.Format == "" {
		log.Format = defaultLoggingFmt
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateAbsoluteURL("site.origin", c.Site.Origin); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Site.ArticlePrefix, "/") || !strings.HasSuffix(c.Site.ArticlePrefix, "/") {
		return &infraconfig.ValidationError{
			Field:   "site.article_prefix",
			Message: "must start and end with /",
		}
	}
	if len(c.Crawlers.UserAgents) == 0 {
		return &infraconfig.ValidationError{Field: "crawlers.user_agents", Message: "is required"}
	}
	if err := c.validateSanity(); err != nil {
		return err
	}
	if c.Document.SelfOrigin != "" {
		if err := infraconfig.ValidateAbsoluteURL("document.self_origin", c.Document.SelfOrigin); err != nil {
			return err
		}
	}
	if err := infraconfig.ValidateAbsoluteURL("sitemap.base_url", c.Sitemap.BaseURL); err != nil {
		return err
	}
	if c.Cache.Enabled {
		if err := infraconfig.ValidateRequired("redis.address", c.Redis.Address); err != nil {
			return err
		}
	}
	return c.Logging.Validate()
}

func (c *Config) validateSanity() error {
	if err := infraconfig.ValidateRequired("sanity.project_id", c.Sanity.ProjectID); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("sanity.dataset", c.Sanity.Dataset); err != nil {
		return err
	}
	if err := infraconfig.ValidateRequired("sanity.api_version", c.Sanity.APIVersion); err != nil {
		return err
	}
	if c.Sanity.RateLimit < 0 {
		return &infraconfig.ValidationError{Field: "sanity.rate_limit", Message: "must not be negative"}
	}
	return nil
}
