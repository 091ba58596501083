package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"recap/internal/services"
)

func TestWrapTagsAndChains(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrAlignment, "aligning", "http request", "", cause)

	if !errors.Is(err, services.ErrAlignment) {
		t.Error("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if errors.Is(err, services.ErrAnalysis) {
		t.Error("wrong marker matched")
	}
}

func TestFatalClassification(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrDownload, "downloading", "fetch", "", nil), true},
		{services.Wrap(services.ErrAlignment, "aligning", "align", "", nil), true},
		{services.Wrap(services.ErrMerge, "merging", "merge", "", nil), true},
		{services.Wrap(services.ErrPersistence, "saving", "update", "", nil), true},
		{services.Wrap(services.ErrAnalysis, "analyzing", "analyze", "", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.Fatal(tc.err); got != tc.want {
			t.Errorf("Fatal(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestUserMessageDistinguishesUnavailability(t *testing.T) {
	plain := services.Wrap(services.ErrAlignment, "aligning", "align", "http 500", nil)
	if got := services.UserMessage(plain); got != "alignment failed" {
		t.Errorf("plain failure message = %q", got)
	}

	open := services.Wrap(services.ErrAlignment, "aligning", "circuit open", "",
		fmt.Errorf("%w: alignment: circuit breaker open", services.ErrUnavailable))
	if got := services.UserMessage(open); got != "alignment service unavailable" {
		t.Errorf("circuit-open message = %q", got)
	}

	if got := services.UserMessage(errors.New("mystery")); got != "processing failed" {
		t.Errorf("unclassified message = %q", got)
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := services.WithJobID(services.WithStage(context.Background(), "aligning"), "job-9")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-9" {
		t.Errorf("job id = %q,%v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "aligning" {
		t.Errorf("stage = %q,%v", stage, ok)
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Error("request id present without annotation")
	}
}
