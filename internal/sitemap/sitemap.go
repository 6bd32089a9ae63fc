// Package sitemap builds /sitemap.xml from the static pages of the site and
// the published documents listed by the content lake.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

const (
	// ContentType is the media type of the sitemap response.
	ContentType = "application/xml"
	// Namespace is the sitemap protocol namespace.
	Namespace   = "http://www.sitemaps.org/schemas/sitemap/0.9"

	// StageSitemap labels content lake failures in the fetch failure counter.
	StageSitemap = "sitemap"

	dateLayout = "2006-01-02"
)

// Change frequencies used by the site.
const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

// Page is a static route listed in every sitemap.
type Page struct {
	Path       string
	ChangeFreq string
	Priority   float64
}

// StaticPages are the routes of the SPA that exist without CMS content.
var StaticPages = []Page{
	{"/", Daily, 1.0},
	{"/articles", Daily, 0.9},
	{"/videos", Daily, 0.9},
	{"/histoires", Daily, 0.9},
	{"/series", Weekly, 0.8},
	{"/univers", Weekly, 0.8},
	{"/recommandations", Weekly, 0.8},
	{"/bibliotheque", Weekly, 0.7},
	{"/a-propos", Monthly, 0.6},
	{"/contact", Monthly, 0.5},
	{"/partenariats", Monthly, 0.5},
	{"/racontez-votre-histoire", Monthly, 0.5},
	{"/mentions-legales", Yearly, 0.3},
	{"/cgu", Yearly, 0.3},
	{"/cgv", Yearly, 0.3},
}

type section struct {
	prefix     string
	changeFreq string
	priority   float64
	entries    func(*domain.SitemapContent) []domain.SitemapEntry
}

var sections = []section{
	{"/article/", Weekly, 0.8, func(c *domain.SitemapContent) []domain.SitemapEntry { return c.Articles }},
	{"/series/", Weekly, 0.7, func(c *domain.SitemapContent) []domain.SitemapEntry { return c.Series }},
	{"/histoire/", Monthly, 0.7, func(c *domain.SitemapContent) []domain.SitemapEntry { return c.Histoires }},
	{"/recommandation/", Monthly, 0.6, func(c *domain.SitemapContent) []domain.SitemapEntry { return c.Recommandations }},
	{"/univers/", Weekly, 0.7, func(c *domain.SitemapContent) []domain.SitemapEntry { return c.Univers }},
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Config configures a Generator.
type Config struct {
	// BaseURL prefixes every location, e.g. https://origines.media.
	BaseURL string
	// CacheControl is sent with every sitemap response.
	CacheControl string
	// Pages defaults to StaticPages.
	Pages []Page
}

// Generator renders the sitemap. It is safe for concurrent use.
type Generator struct {
	source       domain.SitemapSource
	baseURL      string
	cacheControl string
	pages        []Page
	log          logger.Logger
	metrics      *telemetry.Metrics
	now          func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock replaces the clock used for entries without an update time.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator. metrics may be nil.
func New(source domain.SitemapSource, cfg Config, log logger.Logger, metrics *telemetry.Metrics, opts ...Option) *Generator {
	pages := cfg.Pages
	if len(pages) == 0 {
		pages = StaticPages
	}

	g := &Generator{
		source:       source,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		cacheControl: cfg.CacheControl,
		pages:        pages,
		log:          log,
		metrics:      metrics,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build renders the sitemap document. When the content lake is unavailable
// the sitemap lists the static pages only.
func (g *Generator) Build(ctx context.Context) ([]byte, error) {
	content, err := g.source.FetchSitemapContent(ctx)
	if err != nil {
		g.report(ctx, err)
		content = nil
	}

	set := urlSet{Xmlns: Namespace}
	for _, p := range g.pages {
		set.URLs = append(set.URLs, urlEntry{
			Loc:        g.baseURL + p.Path,
			ChangeFreq: p.ChangeFreq,
			Priority:   formatPriority(p.Priority),
		})
	}

	if content != nil {
		today := g.now().UTC().Format(dateLayout)
		for _, s := range sections {
			for _, e := range s.entries(content) {
				if e.Slug == "" {
					continue
				}
				set.URLs = append(set.URLs, urlEntry{
					Loc:        g.baseURL + s.prefix + url.PathEscape(e.Slug),
					LastMod:    lastMod(e.UpdatedAt, today),
					ChangeFreq: s.changeFreq,
					Priority:   formatPriority(s.priority),
				})
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if encErr := enc.Encode(set); encErr != nil {
		return nil, fmt.Errorf("encode sitemap: %w", encErr)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Handle serves the sitemap.
func (g *Generator) Handle(c *gin.Context) {
	body, err := g.Build(c.Request.Context())
	if err != nil {
		logger.FromContextOr(c.Request.Context(), g.log).Error("Sitemap generation failed", logger.Error(err))
		c.String(http.StatusInternalServerError, "Error generating sitemap")
		return
	}

	if g.cacheControl != "" {
		c.Header("Cache-Control", g.cacheControl)
	}
	c.Data(http.StatusOK, ContentType, body)
}

func (g *Generator) report(ctx context.Context, err error) {
	if g.metrics != nil {
		g.metrics.FetchFailures.WithLabelValues(StageSitemap).Inc()
	}
	logger.FromContextOr(ctx, g.log).Warn("Sitemap content unavailable, listing static pages only",
		logger.Error(err),
	)
}

// lastMod returns the UTC date of an RFC 3339 timestamp, or today when the
// timestamp is missing or malformed.
func lastMod(updatedAt, today string) string {
	if updatedAt == "" {
		return today
	}
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return today
	}
	return t.UTC().Format(dateLayout)
}

func formatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
