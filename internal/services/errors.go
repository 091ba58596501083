package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for pipeline failure classification. Every error that
// crosses a stage boundary is tagged with exactly one of these so the
// orchestrator can attribute the failure without string matching.
var (
	ErrDownload    = errors.New("download failure")
	ErrAlignment   = errors.New("alignment failure")
	ErrAnalysis    = errors.New("analysis failure")
	ErrMerge       = errors.New("merge failure")
	ErrPersistence = errors.New("persistence failure")
	ErrUnavailable = errors.New("service unavailable")
	ErrValidation  = errors.New("validation error")
	ErrTransient   = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether an error should fail the whole job. Analysis errors
// degrade to empty enrichment; everything else tagged with a pipeline marker
// is fatal.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAnalysis)
}

// UserMessage maps a classified error to a short message suitable for
// surfacing on the job record. Circuit rejections carry an explicit
// "unavailable" wording so operators can tell saturation from bugs.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrDownload):
		return "audio download failed"
	case errors.Is(err, ErrAlignment):
		if errors.Is(err, ErrUnavailable) {
			return "alignment service unavailable"
		}
		return "alignment failed"
	case errors.Is(err, ErrAnalysis):
		if errors.Is(err, ErrUnavailable) {
			return "analysis service unavailable"
		}
		return "analysis failed"
	case errors.Is(err, ErrMerge):
		return "transcript merge failed"
	case errors.Is(err, ErrPersistence):
		return "saving transcript failed"
	default:
		return "processing failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
