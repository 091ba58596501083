// Package worker runs the daemon loop: poll the job store for pending work
// and drive each job through the processing pipeline.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"recap/internal/breaker"
	"recap/internal/jobs"
	"recap/internal/logging"
)

// Processor handles one job end to end.
type Processor interface {
	Process(ctx context.Context, job *jobs.Job) error
}

// Queue is the slice of the job store the worker polls.
type Queue interface {
	NextPending(ctx context.Context) (*jobs.Job, error)
}

// HealthChecker verifies an external dependency before the loop starts.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// Options configures the worker.
type Options struct {
	Queue        Queue
	Processor    Processor
	Health       HealthChecker
	Breakers     *breaker.Registry
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Worker polls for pending jobs and processes them one at a time. Jobs are
// independent; there is no ordering guarantee across jobs, and any
// parallelism would come from running multiple workers.
type Worker struct {
	queue        Queue
	processor    Processor
	health       HealthChecker
	breakers     *breaker.Registry
	pollInterval time.Duration
	logger       *slog.Logger
}

// New constructs a worker.
func New(opts Options) (*Worker, error) {
	if opts.Queue == nil {
		return nil, errors.New("worker: queue is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("worker: processor is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Worker{
		queue:        opts.Queue,
		processor:    opts.Processor,
		health:       opts.Health,
		breakers:     opts.Breakers,
		pollInterval: opts.PollInterval,
		logger:       logging.NewComponentLogger(opts.Logger, "worker"),
	}, nil
}

// Run blocks until the context is canceled. A preflight health probe is
// advisory: an unreachable alignment service is logged, and the breaker will
// handle it once jobs arrive.
func (w *Worker) Run(ctx context.Context) error {
	if w.health != nil {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := w.health.Healthcheck(probeCtx); err != nil {
			w.logger.Warn("alignment service preflight failed", logging.Args(logging.Error(err))...)
		} else {
			w.logger.Info("alignment service healthy")
		}
		cancel()
	}

	w.logger.Info("worker started", logging.Args(logging.Duration("poll_interval", w.pollInterval))...)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("drain pending jobs", logging.Args(logging.Error(err))...)
		}
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain processes pending jobs until the queue is empty or the context ends.
func (w *Worker) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := w.queue.NextPending(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		// Process owns failure recording; an error here is already persisted
		// on the job row.
		if err := w.processor.Process(ctx, job); err != nil {
			w.logger.Warn("job processing failed",
				logging.Args(logging.String(logging.FieldJobID, job.ID), logging.Error(err))...)
		}
		w.logBreakerStats()
	}
}

func (w *Worker) logBreakerStats() {
	if w.breakers == nil {
		return
	}
	for _, stats := range w.breakers.Stats() {
		if stats.State == breaker.StateClosed && stats.TotalFailures == 0 {
			continue
		}
		w.logger.Info("breaker state",
			logging.Args(
				logging.String("service", stats.Name),
				logging.String("state", stats.State.String()),
				logging.Int("failures", stats.Failures),
				logging.Int64("total_failures", int64(stats.TotalFailures)),
				logging.Int64("total_rejections", int64(stats.TotalRejections)),
			)...)
	}
}
