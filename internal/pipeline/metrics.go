package pipeline

import (
	"log/slog"
	"time"

	"recap/internal/logging"
	"recap/internal/services/align"
)

// StageTiming records how long one pipeline stage took for one job.
type StageTiming struct {
	JobID    string
	Stage    string
	Duration time.Duration
	Err      error
}

// MetricsSink receives per-stage timing and alignment quality observations.
// Implementations must be safe for concurrent use.
type MetricsSink interface {
	ObserveStage(timing StageTiming)
	ObserveConfidence(jobID string, avg float64, dist align.ConfidenceDistribution)
}

// LogSink emits metrics observations as structured log records. It is the
// default sink; a real metrics backend can replace it without touching the
// orchestrator.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs observations through the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSink{logger: logging.NewComponentLogger(logger, "metrics")}
}

func (s *LogSink) ObserveStage(timing StageTiming) {
	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, timing.JobID),
		logging.String(logging.FieldStage, timing.Stage),
		logging.Duration("duration", timing.Duration),
	}
	if timing.Err != nil {
		attrs = append(attrs, logging.Error(timing.Err))
		s.logger.Warn("stage timing", logging.Args(attrs...)...)
		return
	}
	s.logger.Info("stage timing", logging.Args(attrs...)...)
}

func (s *LogSink) ObserveConfidence(jobID string, avg float64, dist align.ConfidenceDistribution) {
	s.logger.Info("alignment confidence",
		logging.Args(
			logging.String(logging.FieldJobID, jobID),
			logging.Float64("average", avg),
			logging.Int("high", dist.High),
			logging.Int("medium", dist.Medium),
			logging.Int("low", dist.Low),
		)...)
}

// NopSink discards all observations.
type NopSink struct{}

func (NopSink) ObserveStage(StageTiming) {}

func (NopSink) ObserveConfidence(string, float64, align.ConfidenceDistribution) {}
