// Package breaker implements the per-service circuit breaker guarding calls
// to the alignment and analysis services.
//
// The state machine is closed -> open -> half-open -> closed, with
// half-open -> open on a failed probe. The open -> half-open transition is
// lazy: it happens on the next admission check after the reset timeout
// elapses, never on a background timer.
package breaker
