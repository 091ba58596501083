package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned when a call is rejected because the breaker is open.
// Callers distinguish this from a genuine service error so operators can tell
// saturation from bugs.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker's position in the closed/open/half-open cycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settings configures a breaker instance.
type Settings struct {
	// Name identifies the guarded service in errors and stats.
	Name string
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker open.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before a probe call is
	// allowed through. The open -> half-open transition is lazy: it happens on
	// the next Allow check after the timeout, not on a background timer.
	ResetTimeout time.Duration
	// HalfOpenRequests is the number of consecutive successful probes required
	// to close the breaker again.
	HalfOpenRequests int
}

// Stats is a point-in-time snapshot of breaker bookkeeping.
type Stats struct {
	Name            string
	State           State
	Failures        int
	HalfOpenSuccess int
	TotalFailures   uint64
	TotalSuccesses  uint64
	TotalRejections uint64
	LastFailure     time.Time
	LastStateChange time.Time
}

// Breaker guards calls to one external service. It is shared across all
// concurrent jobs touching that service: a failing dependency trips once and
// protects every in-flight job.
type Breaker struct {
	mu sync.Mutex

	settings Settings
	now      func() time.Time

	state           State
	failures        int
	halfOpenSuccess int
	totalFailures   uint64
	totalSuccesses  uint64
	totalRejections uint64
	lastFailure     time.Time
	lastStateChange time.Time
}

// Option customizes breaker construction.
type Option func(*Breaker)

// WithClock overrides the time source (for tests).
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New constructs a breaker with the supplied settings. Zero or negative
// settings fall back to conservative defaults.
func New(settings Settings, opts ...Option) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = 60 * time.Second
	}
	if settings.HalfOpenRequests <= 0 {
		settings.HalfOpenRequests = 1
	}
	b := &Breaker{
		settings: settings,
		now:      time.Now,
		state:    StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastStateChange = b.now()
	return b
}

// Allow reports whether a call may proceed, performing the lazy
// open -> half-open transition when the reset timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowLocked()
}

func (b *Breaker) allowLocked() bool {
	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.settings.ResetTimeout {
			b.transitionLocked(StateHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

// Execute runs op if the breaker allows it, recording the outcome. A rejected
// call returns an error wrapping ErrOpen without invoking op.
func (b *Breaker) Execute(ctx context.Context, op func(context.Context) error) error {
	b.mu.Lock()
	if !b.allowLocked() {
		b.totalRejections++
		name := b.settings.Name
		b.mu.Unlock()
		return fmt.Errorf("%s: %w", name, ErrOpen)
	}
	b.mu.Unlock()

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// ExecuteWithFallback runs op through the breaker; when the call is rejected
// or op fails, fallback's result is returned instead of the error. Failures
// still count toward the breaker's bookkeeping.
func (b *Breaker) ExecuteWithFallback(ctx context.Context, op, fallback func(context.Context) error) error {
	err := b.Execute(ctx, op)
	if err == nil || fallback == nil {
		return err
	}
	return fallback(ctx)
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalSuccesses++
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.halfOpenSuccess++
		if b.halfOpenSuccess >= b.settings.HalfOpenRequests {
			b.transitionLocked(StateClosed)
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	b.lastFailure = b.now()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.settings.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		// A single failed probe reopens immediately.
		b.transitionLocked(StateOpen)
	case StateOpen:
		// Late failure from a call admitted before the trip; keep the clock fresh.
	}
}

func (b *Breaker) transitionLocked(next State) {
	if b.state == next {
		return
	}
	b.state = next
	b.lastStateChange = b.now()
	switch next {
	case StateClosed:
		b.failures = 0
		b.halfOpenSuccess = 0
	case StateHalfOpen:
		b.halfOpenSuccess = 0
	case StateOpen:
		b.halfOpenSuccess = 0
	}
}

// State returns the current state without performing the lazy transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the guarded service name.
func (b *Breaker) Name() string {
	return b.settings.Name
}

// Stats returns a snapshot of the breaker's bookkeeping.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:            b.settings.Name,
		State:           b.state,
		Failures:        b.failures,
		HalfOpenSuccess: b.halfOpenSuccess,
		TotalFailures:   b.totalFailures,
		TotalSuccesses:  b.totalSuccesses,
		TotalRejections: b.totalRejections,
		LastFailure:     b.lastFailure,
		LastStateChange: b.lastStateChange,
	}
}
