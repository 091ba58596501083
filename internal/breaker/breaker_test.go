package breaker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"recap/internal/breaker"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newBreaker(t *testing.T, settings breaker.Settings) (*breaker.Breaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return breaker.New(settings, breaker.WithClock(clock.Now)), clock
}

func fail(context.Context) error { return errBoom }

func succeed(context.Context) error { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b, _ := newBreaker(t, breaker.Settings{Name: "svc", FailureThreshold: 3, ResetTimeout: time.Minute})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("failure %d: got %v, want errBoom", i, err)
		}
		if got := b.State(); got != breaker.StateClosed {
			t.Fatalf("failure %d: state = %v, want closed", i, got)
		}
	}

	if err := b.Execute(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("third failure: got %v", err)
	}
	if got := b.State(); got != breaker.StateOpen {
		t.Fatalf("state after threshold = %v, want open", got)
	}

	calls := 0
	err := b.Execute(ctx, func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("rejected call error = %v, want ErrOpen", err)
	}
	if calls != 0 {
		t.Fatalf("operation ran %d times while open", calls)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newBreaker(t, breaker.Settings{Name: "svc", FailureThreshold: 2, ResetTimeout: time.Minute})

	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("success: %v", err)
	}
	_ = b.Execute(ctx, fail)
	if got := b.State(); got != breaker.StateClosed {
		t.Fatalf("state = %v, want closed after interleaved success", got)
	}
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	b, clock := newBreaker(t, breaker.Settings{
		Name:             "svc",
		FailureThreshold: 1,
		ResetTimeout:     30 * time.Second,
		HalfOpenRequests: 2,
	})

	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	if got := b.State(); got != breaker.StateOpen {
		t.Fatalf("state = %v, want open", got)
	}
	if b.Allow() {
		t.Fatal("Allow returned true before reset timeout")
	}

	clock.Advance(30 * time.Second)
	if !b.Allow() {
		t.Fatal("Allow returned false after reset timeout")
	}
	if got := b.State(); got != breaker.StateHalfOpen {
		t.Fatalf("state = %v, want half-open", got)
	}

	// First probe success keeps it half-open; the second closes it.
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe 1: %v", err)
	}
	if got := b.State(); got != breaker.StateHalfOpen {
		t.Fatalf("state after one probe = %v, want half-open", got)
	}
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe 2: %v", err)
	}
	if got := b.State(); got != breaker.StateClosed {
		t.Fatalf("state after probes = %v, want closed", got)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newBreaker(t, breaker.Settings{
		Name:             "svc",
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		HalfOpenRequests: 3,
	})

	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	clock.Advance(time.Second)
	if !b.Allow() {
		t.Fatal("Allow after timeout")
	}
	_ = b.Execute(ctx, succeed)
	if err := b.Execute(ctx, fail); !errors.Is(err, errBoom) {
		t.Fatalf("half-open failure: %v", err)
	}
	if got := b.State(); got != breaker.StateOpen {
		t.Fatalf("state = %v, want open after half-open failure", got)
	}
}

func TestExecuteWithFallback(t *testing.T) {
	b, _ := newBreaker(t, breaker.Settings{Name: "svc", FailureThreshold: 1, ResetTimeout: time.Minute})

	ctx := context.Background()
	fallbackRuns := 0
	fallback := func(context.Context) error {
		fallbackRuns++
		return nil
	}

	// Operation failure: fallback result wins, failure still counted.
	if err := b.ExecuteWithFallback(ctx, fail, fallback); err != nil {
		t.Fatalf("fallback on failure: %v", err)
	}
	if fallbackRuns != 1 {
		t.Fatalf("fallback runs = %d, want 1", fallbackRuns)
	}
	if got := b.State(); got != breaker.StateOpen {
		t.Fatalf("state = %v, want open (failure counted despite fallback)", got)
	}

	// Rejected call: operation never runs, fallback does.
	opRuns := 0
	err := b.ExecuteWithFallback(ctx, func(context.Context) error {
		opRuns++
		return nil
	}, fallback)
	if err != nil {
		t.Fatalf("fallback on rejection: %v", err)
	}
	if opRuns != 0 {
		t.Fatalf("operation ran %d times while open", opRuns)
	}
	if fallbackRuns != 2 {
		t.Fatalf("fallback runs = %d, want 2", fallbackRuns)
	}
}

func TestBreakerStats(t *testing.T) {
	b, _ := newBreaker(t, breaker.Settings{Name: "svc", FailureThreshold: 2, ResetTimeout: time.Minute})

	ctx := context.Background()
	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, succeed) // rejected

	stats := b.Stats()
	if stats.Name != "svc" {
		t.Errorf("Name = %q", stats.Name)
	}
	if stats.State != breaker.StateOpen {
		t.Errorf("State = %v, want open", stats.State)
	}
	if stats.TotalSuccesses != 1 {
		t.Errorf("TotalSuccesses = %d, want 1", stats.TotalSuccesses)
	}
	if stats.TotalFailures != 2 {
		t.Errorf("TotalFailures = %d, want 2", stats.TotalFailures)
	}
	if stats.TotalRejections != 1 {
		t.Errorf("TotalRejections = %d, want 1", stats.TotalRejections)
	}
	if stats.LastFailure.IsZero() {
		t.Error("LastFailure not recorded")
	}
}

func TestRegistrySharesInstances(t *testing.T) {
	registry := breaker.NewRegistry()
	first := registry.Register(breaker.Settings{Name: "alignment", FailureThreshold: 1})
	second := registry.Register(breaker.Settings{Name: "alignment", FailureThreshold: 99})
	if first != second {
		t.Fatal("same name returned distinct breakers")
	}

	other := registry.Register(breaker.Settings{Name: "analysis", FailureThreshold: 1})
	if other == first {
		t.Fatal("distinct names share a breaker")
	}

	_ = first.Execute(context.Background(), fail)
	if got := second.State(); got != breaker.StateOpen {
		t.Fatalf("shared state not observed: %v", got)
	}

	if got := len(registry.Stats()); got != 2 {
		t.Fatalf("Stats len = %d, want 2", got)
	}
	if b, ok := registry.Get("analysis"); !ok || b != other {
		t.Fatal("Get did not return registered breaker")
	}
}
