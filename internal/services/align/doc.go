// Package align invokes the forced-alignment/diarization service: raw audio
// in, speaker-labeled utterances with seconds timestamps and per-segment
// confidence out.
package align
