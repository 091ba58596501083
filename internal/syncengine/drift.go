package syncengine

import (
	"context"
	"math"

	"recap/internal/jobs"
	"recap/internal/logging"
)

// applyDriftLocked reconciles the decoded audio duration with the
// pipeline-reported duration (end of the last segment). When the two differ
// by more than both the absolute and relative floors, every segment timestamp
// is rescaled by decoded/pipeline, rounding down to the millisecond. The
// correction runs at most once per session and never for server-aligned
// documents; those timestamps are trusted as-is.
func (e *Engine) applyDriftLocked(ctx context.Context, decodedDurationMs int64) {
	if e.driftApplied || e.doc == nil || len(e.doc.Segments) == 0 {
		return
	}
	if e.alignmentStatus == jobs.AlignmentAligned {
		return
	}

	pipelineMs := e.doc.Segments[len(e.doc.Segments)-1].EndMs
	if pipelineMs <= 0 || decodedDurationMs <= 0 {
		return
	}

	diff := decodedDurationMs - pipelineMs
	if diff < 0 {
		diff = -diff
	}
	if diff <= e.opts.DriftAbsFloorMs {
		return
	}
	if float64(diff) <= e.opts.DriftRelFloor*float64(pipelineMs) {
		return
	}

	ratio := float64(decodedDurationMs) / float64(pipelineMs)
	for i := range e.doc.Segments {
		seg := &e.doc.Segments[i]
		seg.StartMs = scaleMs(seg.StartMs, ratio)
		seg.EndMs = scaleMs(seg.EndMs, ratio)
	}
	e.doc.DurationMs = e.doc.Segments[len(e.doc.Segments)-1].EndMs
	e.driftApplied = true

	e.logger.Info("drift correction applied",
		logging.Args(
			logging.String(logging.FieldJobID, e.jobID),
			logging.Int64("pipeline_ms", pipelineMs),
			logging.Int64("decoded_ms", decodedDurationMs),
			logging.Float64("ratio", ratio),
		)...)

	// Persist so future sessions see already-corrected timestamps. A failed
	// save only means the correction repeats next session.
	if e.opts.Saver != nil {
		if err := e.opts.Saver.SaveDocument(ctx, e.jobID, e.doc); err != nil {
			e.logger.Warn("persist drift correction failed",
				logging.Args(logging.String(logging.FieldJobID, e.jobID), logging.Error(err))...)
		}
	}
}

func scaleMs(value int64, ratio float64) int64 {
	return int64(math.Floor(float64(value) * ratio))
}
