// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for
// the prerender path.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	namespace = "og_prerender"
	// TracerName names the tracer for all prerender spans.
	TracerName = "github.com/originesmedia/og-prerender"
)

// Decision labels.
const (
	DecisionIntercepted = "intercepted"
	DecisionNotCrawler  = "not_crawler"
	DecisionNoRoute     = "no_route"
	DecisionFailedOpen  = "failed_open"
)

// Cache lookup labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds the prerender Prometheus collectors.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	FetchFailures    *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	SanityRequests   *prometheus.CounterVec
	CircuitState     prometheus.Gauge
}

// Provider wraps the tracer and metrics.
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry(); production passes prometheus.DefaultRegisterer.
func NewProvider(reg prometheus.Registerer) *Provider {
	return &Provider{
		Tracer:  otel.Tracer(TracerName),
		Metrics: newMetrics(reg),
	}
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Prerender decisions by outcome (intercepted, not_crawler, no_route, failed_open)",
		}, []string{"decision"}),

		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failures degraded to a fallback, by stage",
		}, []string{"stage"}),

		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time to build a prerendered response",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Metadata cache lookups by result (hit, miss, error)",
		}, []string{"result"}),

		SanityRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanity_requests_total",
			Help:      "Sanity metadata queries by outcome",
		}, []string{"outcome"}),

		CircuitState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sanity_circuit_state",
			Help:      "Sanity circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
	}
}

// StartSpan starts a span. The caller ends it.
//
//nolint:spancheck // span is returned to caller who manages its lifecycle
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed. A nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
