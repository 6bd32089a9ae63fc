// Package sanity queries article metadata from the Sanity content lake.
package sanity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/originesmedia/og-prerender/infrastructure/circuitbreaker"
	infraerrors "github.com/originesmedia/og-prerender/infrastructure/errors"
	infrahttp "github.com/originesmedia/og-prerender/infrastructure/http"
	"github.com/originesmedia/og-prerender/internal/domain"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

// ErrRateLimited is returned when the outbound query budget is exhausted.
var ErrRateLimited = errors.New("sanity query rate limited")

// Outcome labels for telemetry.
const (
	outcomeFound       = "found"
	outcomeNotFound    = "not_found"
	outcomeError       = "error"
	outcomeRateLimited = "rate_limited"
	outcomeCircuitOpen = "circuit_open"
)

const (
	defaultTimeout      = 3 * time.Second
	maxResponseBytes    = 1 << 20
	breakerFailures     = 5
	breakerSuccesses    = 1
	breakerOpenDuration = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	// Token is sent as a bearer token when set.
	Token  string
	UseCDN bool
	// Endpoint overrides the URL derived from ProjectID, Dataset and APIVersion.
	Endpoint string
	Timeout  time.Duration
	// RateLimit is the sustained queries per second. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// BreakerFailures opens the circuit after this many consecutive failures.
	BreakerFailures int
	BreakerTimeout  time.Duration
}

// Client runs GROQ queries with a single GET per lookup. Article and sitemap
// lookups share one rate budget and one circuit breaker.
type Client struct {
	httpClient *http.Client
	endpoint   string
	query      string
	token      string
	timeout    time.Duration
	breaker    *circuitbreaker.Breaker
	limiter    *rate.Limiter
	telemetry  *telemetry.Provider
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTelemetry records spans and outcome metrics.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(cl *Client) { cl.telemetry = p }
}

// WithQuery replaces ArticleMetaQuery. The query must bind $slug.
func WithQuery(q string) Option {
	return func(cl *Client) { cl.query = q }
}

// NewClient creates a Client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = breakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = breakerOpenDuration
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = Endpoint(cfg.ProjectID, cfg.Dataset, cfg.APIVersion, cfg.UseCDN)
	}

	c := &Client{
		endpoint: endpoint,
		query:    ArticleMetaQuery,
		token:    cfg.Token,
		timeout:  cfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: cfg.Timeout})
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c.breaker = circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailures,
		SuccessThreshold: breakerSuccesses,
		Timeout:          cfg.BreakerTimeout,
		IsFailure:        isUpstreamFailure,
		OnStateChange: func(_, to circuitbreaker.State) {
			if c.telemetry != nil {
				c.telemetry.Metrics.CircuitState.Set(float64(to))
			}
		},
	})

	return c
}

// FetchMetadata returns the metadata of slug, or nil when no article matches.
// A record whose fields are all empty is reported as nil.
func (c *Client) FetchMetadata(ctx context.Context, slug string) (*domain.ContentMetadata, error) {
	ctx, end := c.observe(ctx, "sanity.fetch_metadata", attribute.String("article.slug", slug))

	var meta *domain.ContentMetadata
	err := c.run(ctx, c.query, map[string]string{"slug": slug}, &meta)
	if err != nil {
		err = fmt.Errorf("sanity query %q: %w", slug, err)
		meta = nil
	} else if meta.IsEmpty() {
		meta = nil
	}

	end(meta != nil, err)
	return meta, err
}

// FetchSitemapContent lists the published documents of every section with
// one query.
func (c *Client) FetchSitemapContent(ctx context.Context) (*domain.SitemapContent, error) {
	ctx, end := c.observe(ctx, "sanity.fetch_sitemap")

	var content *domain.SitemapContent
	err := c.run(ctx, SitemapQuery, nil, &content)
	if err != nil {
		err = fmt.Errorf("sanity sitemap query: %w", err)
		content = nil
	}

	end(content != nil, err)
	return content, err
}

// run spends one unit of the rate budget and performs the query through the
// circuit breaker, decoding the result field into out.
func (c *Client) run(ctx context.Context, query string, params map[string]string, out any) error {
	if c.limiter != nil && !c.limiter.Allow() {
		return ErrRateLimited
	}

	return c.breaker.Execute(ctx, func() error {
		return c.do(ctx, query, params, out)
	})
}

func (c *Client) do(ctx context.Context, query string, params map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := QueryURL(c.endpoint, query, params)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if httpErr := infraerrors.ParseHTTPError(resp); httpErr != nil {
		return httpErr
	}

	body := struct {
		Result any `json:"result"`
	}{Result: out}
	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}

// isUpstreamFailure counts transport errors, 5xx and 429 against the
// breaker. Other 4xx responses mean the query is wrong, not that Sanity is
// down.
func isUpstreamFailure(err error) bool {
	status, ok := infraerrors.GetHTTPStatusCode(err)
	if !ok {
		return true
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

// State reports the circuit breaker state.
func (c *Client) State() circuitbreaker.State {
	return c.breaker.State()
}

func (c *Client) observe(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(bool, error)) {
	if c.telemetry == nil {
		return ctx, func(bool, error) {}
	}

	ctx, span := c.telemetry.StartSpan(ctx, name, attrs...)
	return ctx, func(found bool, err error) {
		outcome := outcomeOf(found, err)
		span.SetAttributes(attribute.String("sanity.outcome", outcome))
		telemetry.RecordError(span, err)
		span.End()
		c.telemetry.Metrics.SanityRequests.WithLabelValues(outcome).Inc()
	}
}

func outcomeOf(found bool, err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return outcomeRateLimited
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return outcomeCircuitOpen
	case err != nil:
		return outcomeError
	case !found:
		return outcomeNotFound
	default:
		return outcomeFound
	}
}
