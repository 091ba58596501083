// Package syncengine keeps audio playback and the transcript view in step.
// It owns the single current-playback-time value and reconciles three
// consumers of it: the decoder's reported position, the highlighted
// transcript segment, and a scrub control the user can drag without
// committing. Decoder notifications arrive through a Session so that events
// from a torn-down decoder can never mutate a newer session's state.
package syncengine
