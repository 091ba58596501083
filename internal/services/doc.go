// Package services carries the shared error taxonomy and context annotations
// used by the external service clients and the pipeline orchestrator.
//
// Errors returned from stage work are tagged with sentinel markers (ErrDownload,
// ErrAlignment, ErrAnalysis, ...) via Wrap so the orchestrator can classify a
// failure without inspecting message text. Context helpers thread the job id,
// stage name, and correlation id through blocking calls for structured logging.
package services
