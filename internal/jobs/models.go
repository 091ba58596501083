package jobs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recap/internal/transcript"
)

// Status represents the lifecycle of a processing job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// AlignmentStatus distinguishes server-verified timestamps from legacy or
// degraded ones. It gates whether client-side drift correction may run.
type AlignmentStatus string

const (
	AlignmentPending  AlignmentStatus = "pending"
	AlignmentAligned  AlignmentStatus = "aligned"
	AlignmentFallback AlignmentStatus = "fallback"
)

var allStatuses = []Status{StatusPending, StatusProcessing, StatusComplete, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ValidAlignmentTransition reports whether moving from one alignment status to
// another is allowed: only pending -> aligned and pending -> fallback, never
// backward.
func ValidAlignmentTransition(from, to AlignmentStatus) bool {
	if from == to {
		return true
	}
	return from == AlignmentPending && (to == AlignmentAligned || to == AlignmentFallback)
}

// Job is one processing attempt for one audio artifact, persisted in SQLite.
// Terminal once Status is complete or failed.
type Job struct {
	ID              string
	UserID          string
	AudioPath       string
	Status          Status
	AlignmentStatus AlignmentStatus
	// ProgressStage is the persisted progress marker a concurrent observer
	// reads to render incremental status. On failure it records the failing
	// stage.
	ProgressStage string
	ErrorMessage  string
	DocumentJSON  string
	DurationMs    int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the job can no longer change status.
func (j *Job) Terminal() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// SetFailed marks the job failed with a user-facing message, keeping the
// progress marker on the failing stage.
func (j *Job) SetFailed(stage, message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	if stage != "" {
		j.ProgressStage = stage
	}
}

// Document decodes the persisted transcript document, if any.
func (j *Job) Document() (*transcript.Document, error) {
	if strings.TrimSpace(j.DocumentJSON) == "" {
		return nil, nil
	}
	var doc transcript.Document
	if err := json.Unmarshal([]byte(j.DocumentJSON), &doc); err != nil {
		return nil, fmt.Errorf("decode job document: %w", err)
	}
	return &doc, nil
}

// SetDocument encodes and attaches the transcript document, updating the
// pipeline-reported duration.
func (j *Job) SetDocument(doc *transcript.Document) error {
	if doc == nil {
		j.DocumentJSON = ""
		j.DurationMs = 0
		return nil
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode job document: %w", err)
	}
	j.DocumentJSON = string(encoded)
	j.DurationMs = doc.DurationMs
	return nil
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Complete   int
	Failed     int
}
