package prerender

import (
	"context"

	"github.com/originesmedia/og-prerender/infrastructure/logger"
	"github.com/originesmedia/og-prerender/internal/telemetry"
)

// Stage names the part of the pipeline a failure came from.
type Stage string

const (
	StageMetadata Stage = "metadata"
	StageDocument Stage = "document"
	StagePipeline Stage = "pipeline"
)

// ErrorReporter observes failures the pipeline degraded to a fallback.
type ErrorReporter interface {
	Report(ctx context.Context, stage Stage, err error)
}

// LogReporter logs failures and counts them by stage.
type LogReporter struct {
	log     logger.Logger
	metrics *telemetry.Metrics
}

// NewLogReporter creates a LogReporter. metrics may be nil.
func NewLogReporter(log logger.Logger, metrics *telemetry.Metrics) *LogReporter {
	return &LogReporter{log: log, metrics: metrics}
}

// Report implements ErrorReporter.
func (r *LogReporter) Report(ctx context.Context, stage Stage, err error) {
	if r.metrics != nil {
		r.metrics.FetchFailures.WithLabelValues(string(stage)).Inc()
	}

	log := logger.FromContextOr(ctx, r.log)
	if stage == StagePipeline {
		log.Error("Prerender failed, passing request through",
			logger.String("stage", string(stage)),
			logger.Error(err),
		)
		return
	}
	log.Warn("Prerender fetch failed, using fallback",
		logger.String("stage", string(stage)),
		logger.Error(err),
	)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, Stage, error) {}
