package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recap/internal/breaker"
	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/media"
	"recap/internal/services"
	"recap/internal/services/align"
	"recap/internal/transcript"
)

// Stage names double as persisted progress markers.
const (
	StageDownload = "downloading"
	StageAlign    = "aligning"
	StageBuild    = "building segments"
	StageAnalyze  = "analyzing"
	StageMerge    = "merging"
	StagePersist  = "saving"
)

// AlignClient produces speaker-labeled, timestamped utterances from raw audio.
type AlignClient interface {
	Align(ctx context.Context, audio []byte, speakerHint int) (align.Result, error)
	Healthcheck(ctx context.Context) error
}

// AnalyzeClient produces content enrichment from an aligned transcript.
type AnalyzeClient interface {
	Analyze(ctx context.Context, segments []transcript.Segment, speakers []transcript.Speaker) (transcript.AnalysisResult, error)
}

// Store is the slice of job persistence the orchestrator needs.
type Store interface {
	Update(ctx context.Context, job *jobs.Job) error
	SetProgress(ctx context.Context, id, stage string) error
}

// Orchestrator drives one job through download, alignment, analysis, merge,
// and persistence. Alignment is mandatory; analysis degrades to empty
// enrichment when its breaker rejects or the service fails.
type Orchestrator struct {
	store          Store
	source         media.Source
	aligner        AlignClient
	analyzer       AnalyzeClient
	alignBreaker   *breaker.Breaker
	analyzeBreaker *breaker.Breaker
	metrics        MetricsSink
	logger         *slog.Logger
	speakerHint    int
}

// Options bundles the orchestrator's collaborators.
type Options struct {
	Store          Store
	Source         media.Source
	Aligner        AlignClient
	Analyzer       AnalyzeClient
	AlignBreaker   *breaker.Breaker
	AnalyzeBreaker *breaker.Breaker
	Metrics        MetricsSink
	Logger         *slog.Logger
	SpeakerHint    int
}

// New constructs an orchestrator. Breakers are shared instances from the
// process-wide registry so concurrent jobs observe the same circuit state.
func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case opts.Source == nil:
		return nil, errors.New("pipeline: media source is required")
	case opts.Aligner == nil:
		return nil, errors.New("pipeline: alignment client is required")
	case opts.Analyzer == nil:
		return nil, errors.New("pipeline: analysis client is required")
	case opts.AlignBreaker == nil || opts.AnalyzeBreaker == nil:
		return nil, errors.New("pipeline: breakers are required")
	}
	if opts.Metrics == nil {
		opts.Metrics = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Orchestrator{
		store:          opts.Store,
		source:         opts.Source,
		aligner:        opts.Aligner,
		analyzer:       opts.Analyzer,
		alignBreaker:   opts.AlignBreaker,
		analyzeBreaker: opts.AnalyzeBreaker,
		metrics:        opts.Metrics,
		logger:         logging.NewComponentLogger(opts.Logger, "pipeline"),
		speakerHint:    opts.SpeakerHint,
	}, nil
}

// Process runs the full stage sequence for one job. The job row is mutated
// only here: processing on entry, then complete with alignment-status aligned,
// or failed with the failing stage preserved in the progress marker.
func (o *Orchestrator) Process(ctx context.Context, job *jobs.Job) error {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, o.logger)

	job.Status = jobs.StatusProcessing
	job.ErrorMessage = ""
	if err := o.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrPersistence, StagePersist, "mark processing", "", err)
	}
	logger.Info("job started", logging.Args(logging.String(logging.FieldEventType, "stage_start"))...)

	doc, err := o.run(ctx, job, logger)
	if err != nil {
		stage := job.ProgressStage
		job.SetFailed(stage, services.UserMessage(err))
		if updateErr := o.store.Update(ctx, job); updateErr != nil {
			logger.Error("persist failure state",
				logging.Args(logging.Error(updateErr), logging.String(logging.FieldStage, stage))...)
		}
		logger.Error("job failed",
			logging.Args(
				logging.Error(err),
				logging.String(logging.FieldStage, stage),
				logging.String(logging.FieldEventType, "stage_failure"),
			)...)
		return err
	}

	job.Status = jobs.StatusComplete
	job.AlignmentStatus = jobs.AlignmentAligned
	job.ProgressStage = "complete"
	if err := o.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrPersistence, StagePersist, "mark complete", "", err)
	}
	logger.Info("job complete",
		logging.Args(
			logging.Int("segments", len(doc.Segments)),
			logging.Int("terms", len(doc.Terms)),
			logging.Int("topics", len(doc.Topics)),
			logging.Int64("duration_ms", doc.DurationMs),
			logging.String(logging.FieldEventType, "stage_complete"),
		)...)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, job *jobs.Job, logger *slog.Logger) (*transcript.Document, error) {
	audio, err := o.download(ctx, job)
	if err != nil {
		return nil, err
	}

	alignment, err := o.align(ctx, job, audio)
	if err != nil {
		return nil, err
	}
	o.metrics.ObserveConfidence(job.ID, alignment.AverageConfidence, alignment.Distribution())

	segments, speakers, err := o.build(ctx, job, alignment)
	if err != nil {
		return nil, err
	}

	analysis := o.analyze(ctx, job, segments, speakers, logger)

	doc, err := o.merge(ctx, job, segments, speakers, analysis)
	if err != nil {
		return nil, err
	}

	if err := o.persist(ctx, job, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (o *Orchestrator) download(ctx context.Context, job *jobs.Job) ([]byte, error) {
	ctx = services.WithStage(ctx, StageDownload)
	o.progress(ctx, job, StageDownload)

	var audio []byte
	err := o.timed(job.ID, StageDownload, func() error {
		var fetchErr error
		audio, fetchErr = o.source.Fetch(ctx, job.AudioPath)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (o *Orchestrator) align(ctx context.Context, job *jobs.Job, audio []byte) (align.Result, error) {
	ctx = services.WithStage(ctx, StageAlign)
	o.progress(ctx, job, StageAlign)

	var result align.Result
	err := o.timed(job.ID, StageAlign, func() error {
		return o.alignBreaker.Execute(ctx, func(ctx context.Context) error {
			var alignErr error
			result, alignErr = o.aligner.Align(ctx, audio, o.speakerHint)
			return alignErr
		})
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return result, services.Wrap(services.ErrAlignment, StageAlign, "circuit open", "",
				fmt.Errorf("%w: %w", services.ErrUnavailable, err))
		}
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) build(ctx context.Context, job *jobs.Job, alignment align.Result) ([]transcript.Segment, []transcript.Speaker, error) {
	ctx = services.WithStage(ctx, StageBuild)
	o.progress(ctx, job, StageBuild)

	var (
		segments []transcript.Segment
		speakers []transcript.Speaker
	)
	err := o.timed(job.ID, StageBuild, func() error {
		var buildErr error
		segments, speakers, buildErr = transcript.BuildSegments(alignment.Utterances)
		if buildErr != nil {
			return services.Wrap(services.ErrAlignment, StageBuild, "build segments", "", buildErr)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return segments, speakers, nil
}

// analyze never fails the job: breaker rejections and service errors both
// degrade to an empty analysis object. The failure is still logged and counted
// by the breaker.
func (o *Orchestrator) analyze(ctx context.Context, job *jobs.Job, segments []transcript.Segment, speakers []transcript.Speaker, logger *slog.Logger) transcript.AnalysisResult {
	ctx = services.WithStage(ctx, StageAnalyze)
	o.progress(ctx, job, StageAnalyze)

	var result transcript.AnalysisResult
	_ = o.timed(job.ID, StageAnalyze, func() error {
		return o.analyzeBreaker.ExecuteWithFallback(ctx,
			func(ctx context.Context) error {
				var analyzeErr error
				result, analyzeErr = o.analyzer.Analyze(ctx, segments, speakers)
				return analyzeErr
			},
			func(context.Context) error {
				result = transcript.AnalysisResult{}
				return nil
			})
	})
	if result.Empty() {
		logger.Warn("analysis degraded, continuing with empty enrichment",
			logging.Args(logging.String(logging.FieldStage, StageAnalyze))...)
	}
	return result
}

func (o *Orchestrator) merge(ctx context.Context, job *jobs.Job, segments []transcript.Segment, speakers []transcript.Speaker, analysis transcript.AnalysisResult) (*transcript.Document, error) {
	ctx = services.WithStage(ctx, StageMerge)
	o.progress(ctx, job, StageMerge)

	var doc transcript.Document
	err := o.timed(job.ID, StageMerge, func() error {
		merged, mergeErr := transcript.Merge(segments, speakers, analysis)
		if mergeErr != nil {
			return services.Wrap(services.ErrMerge, StageMerge, "merge", "", mergeErr)
		}
		if validateErr := merged.Validate(); validateErr != nil {
			return services.Wrap(services.ErrMerge, StageMerge, "validate document", "", validateErr)
		}
		doc = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (o *Orchestrator) persist(ctx context.Context, job *jobs.Job, doc *transcript.Document) error {
	ctx = services.WithStage(ctx, StagePersist)
	o.progress(ctx, job, StagePersist)

	return o.timed(job.ID, StagePersist, func() error {
		if err := job.SetDocument(doc); err != nil {
			return services.Wrap(services.ErrPersistence, StagePersist, "encode document", "", err)
		}
		return nil
	})
}

// progress writes are best-effort: a failed write is logged and the stage
// proceeds, because losing a progress marker must never fail a job. The
// in-memory marker is kept current so a failure can report its stage.
func (o *Orchestrator) progress(ctx context.Context, job *jobs.Job, stage string) {
	job.ProgressStage = stage
	if err := o.store.SetProgress(ctx, job.ID, stage); err != nil {
		o.logger.Warn("progress write failed",
			logging.Args(
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldStage, stage),
				logging.Error(err),
			)...)
	}
}

func (o *Orchestrator) timed(jobID, stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.ObserveStage(StageTiming{
		JobID:    jobID,
		Stage:    stage,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}
