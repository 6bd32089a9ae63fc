// Package prerender serves link-preview crawlers an SPA shell carrying
// article-specific meta tags, and lets every other request through.
package prerender

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/originesmedia/og-prerender/internal/document"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/metatags"
	"github.com/originesmedia/og-prerender/internal/route"
	"github.com/originesmedia/og-prerender/internal/telemetry"
	"github.com/originesmedia/og-prerender/internal/useragent"
)

// DocumentFetcher returns the SPA shell served at origin.
type DocumentFetcher interface {
	Fetch(ctx context.Context, origin string) (string, error)
}

// Options wires a Pipeline. Crawlers, Metadata and Documents are required.
type Options struct {
	Crawlers  *useragent.Registry
	Routes    route.Matcher
	Metadata  domain.MetadataFetcher
	Documents DocumentFetcher
	Site      metatags.Site
	Assembler Assembler
	// SelfOrigin, when set, replaces the request origin for the shell fetch.
	SelfOrigin string
	// Fallback is the shell used when Documents fails.
	Fallback  string
	Reporter  ErrorReporter
	Telemetry *telemetry.Provider
}

// Pipeline decides whether to intercept a request and builds the response.
// It is safe for concurrent use.
type Pipeline struct {
	crawlers   *useragent.Registry
	routes     route.Matcher
	metadata   domain.MetadataFetcher
	documents  DocumentFetcher
	site       metatags.Site
	assembler  Assembler
	selfOrigin string
	fallback   string
	reporter   ErrorReporter
	telemetry  *telemetry.Provider
}

// NewPipeline creates a Pipeline, filling unset options with defaults.
func NewPipeline(opts Options) *Pipeline {
	if opts.Routes.Prefix == "" {
		opts.Routes = route.Articles
	}
	if opts.Site == (metatags.Site{}) {
		opts.Site = metatags.DefaultSite()
	}
	if opts.Assembler == (Assembler{}) {
		opts.Assembler = DefaultAssembler
	}
	if opts.Fallback == "" {
		opts.Fallback = document.FallbackTemplate
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}

	return &Pipeline{
		crawlers:   opts.Crawlers,
		routes:     opts.Routes,
		metadata:   opts.Metadata,
		documents:  opts.Documents,
		site:       opts.Site,
		assembler:  opts.Assembler,
		selfOrigin: strings.TrimSuffix(opts.SelfOrigin, "/"),
		fallback:   opts.Fallback,
		reporter:   opts.Reporter,
		telemetry:  opts.Telemetry,
	}
}

// Handle returns the prerendered response for r, or false when r must pass
// through to the SPA. Non-crawlers and non-article paths never trigger a
// fetch. Handle never panics.
func (p *Pipeline) Handle(ctx context.Context, r *http.Request) (resp *Response, ok bool) {
	if !p.crawlers.IsCrawler(r.UserAgent()) {
		p.decide(telemetry.DecisionNotCrawler)
		return nil, false
	}

	slug, matched := p.routes.MatchURL(r.URL)
	if !matched {
		p.decide(telemetry.DecisionNoRoute)
		return nil, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			p.failOpen(ctx, fmt.Errorf("panic: %v\n%s", rec, debug.Stack()))
			resp, ok = nil, false
		}
	}()

	start := time.Now()
	html, err := p.Render(ctx, slug, p.originOf(r))
	if err != nil {
		p.failOpen(ctx, err)
		return nil, false
	}

	p.decide(telemetry.DecisionIntercepted)
	if p.telemetry != nil {
		p.telemetry.Metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}
	return p.assembler.Assemble(html), true
}

// Render fetches metadata and the shell concurrently and injects the tags.
// Fetch failures degrade to defaults and are reported. The returned error is
// only set when a fetch panicked.
func (p *Pipeline) Render(ctx context.Context, slug, origin string) (string, error) {
	ctx, end := p.span(ctx, "prerender.render", attribute.String("article.slug", slug))
	defer end()

	var (
		meta *domain.ContentMetadata
		doc  string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard(func() error {
		meta = p.fetchMetadata(gctx, slug)
		return nil
	}))
	g.Go(guard(func() error {
		doc = p.fetchDocument(gctx, origin)
		return nil
	}))
	if err := g.Wait(); err != nil {
		return "", err
	}

	return p.site.Inject(meta, slug, doc), nil
}

func (p *Pipeline) fetchMetadata(ctx context.Context, slug string) *domain.ContentMetadata {
	ctx, end := p.span(ctx, "prerender.fetch_metadata")
	defer end()

	meta, err := p.metadata.FetchMetadata(ctx, slug)
	if err != nil {
		p.reporter.Report(ctx, StageMetadata, err)
		return nil
	}
	return meta
}

func (p *Pipeline) fetchDocument(ctx context.Context, origin string) string {
	ctx, end := p.span(ctx, "prerender.fetch_document", attribute.String("origin", origin))
	defer end()

	doc, err := p.documents.Fetch(ctx, origin)
	if err != nil {
		p.reporter.Report(ctx, StageDocument, err)
		return p.fallback
	}
	return doc
}

func (p *Pipeline) failOpen(ctx context.Context, err error) {
	p.decide(telemetry.DecisionFailedOpen)
	p.reporter.Report(ctx, StagePipeline, err)
}

func (p *Pipeline) decide(decision string) {
	if p.telemetry != nil {
		p.telemetry.Metrics.Decisions.WithLabelValues(decision).Inc()
	}
}

func (p *Pipeline) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	if p.telemetry == nil {
		return ctx, func() {}
	}
	ctx, span := p.telemetry.StartSpan(ctx, name, attrs...)
	return ctx, func() { span.End() }
}

func (p *Pipeline) originOf(r *http.Request) string {
	if p.selfOrigin != "" {
		return p.selfOrigin
	}
	return Origin(r)
}

// Origin returns scheme://host of r. X-Forwarded-Proto wins over the TLS
// state of the connection.
func Origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first, _, _ := strings.Cut(proto, ",")
		if first = strings.ToLower(strings.TrimSpace(first)); first == "http" || first == "https" {
			scheme = first
		}
	}
	return scheme + "://" + r.Host
}

// guard turns a panic in fn into an error so errgroup goroutines cannot crash
// the process.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
			}
		}()
		return fn()
	}
}
