// Package pipeline drives a job through the processing stages: download the
// audio, align it, build segments, analyze the transcript, merge, and
// persist. Alignment failures are fatal to the job; analysis failures degrade
// to empty enrichment. Per-stage timings flow to a MetricsSink, the feedback
// loop for tuning breaker thresholds.
package pipeline
