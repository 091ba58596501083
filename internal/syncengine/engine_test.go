package syncengine_test

import (
	"context"
	"errors"
	"testing"

	"recap/internal/jobs"
	"recap/internal/syncengine"
	"recap/internal/transcript"
)

type fakeDecoder struct {
	seeks  []int64
	plays  int
	pauses int
	closed bool
}

func (d *fakeDecoder) Play() error { d.plays++; return nil }

func (d *fakeDecoder) Pause() { d.pauses++ }

func (d *fakeDecoder) Seek(positionMs int64) { d.seeks = append(d.seeks, positionMs) }

func (d *fakeDecoder) Close() { d.closed = true }

type fakeSaver struct {
	saves int
	jobID string
	doc   *transcript.Document
	err   error
}

func (s *fakeSaver) SaveDocument(_ context.Context, jobID string, doc *transcript.Document) error {
	s.saves++
	s.jobID = jobID
	s.doc = doc
	return s.err
}

type fakeScroller struct {
	scrolls []int
}

func (s *fakeScroller) ScrollTo(index int) { s.scrolls = append(s.scrolls, index) }

func testDocument() *transcript.Document {
	return &transcript.Document{
		Speakers: []transcript.Speaker{{ID: "speaker-1", DisplayName: "Speaker 1", Ordinal: 1}},
		Segments: []transcript.Segment{
			{Index: 0, SpeakerID: "speaker-1", StartMs: 0, EndMs: 40000, Text: "first"},
			{Index: 1, SpeakerID: "speaker-1", StartMs: 40000, EndMs: 70000, Text: "second"},
			{Index: 2, SpeakerID: "speaker-1", StartMs: 70000, EndMs: 100000, Text: "third"},
		},
		DurationMs: 100000,
	}
}

func newEngine(saver *fakeSaver, scroller *fakeScroller) *syncengine.Engine {
	opts := syncengine.Options{
		DriftAbsFloorMs: 2000,
		DriftRelFloor:   0.05,
	}
	if saver != nil {
		opts.Saver = saver
	}
	if scroller != nil {
		opts.Scroller = scroller
	}
	return syncengine.New(opts)
}

func TestDriftCorrectionScalesSegments(t *testing.T) {
	saver := &fakeSaver{}
	engine := newEngine(saver, nil)
	doc := testDocument()

	session := engine.Attach("job-1", doc, jobs.AlignmentFallback, &fakeDecoder{})
	session.Loaded(context.Background(), 110000)

	if got := engine.State(); got != syncengine.StateReady {
		t.Fatalf("state = %v, want ready", got)
	}
	wantBounds := [][2]int64{{0, 44000}, {44000, 77000}, {77000, 110000}}
	for i, seg := range doc.Segments {
		if seg.StartMs != wantBounds[i][0] || seg.EndMs != wantBounds[i][1] {
			t.Errorf("segment %d = [%d,%d], want %v", i, seg.StartMs, seg.EndMs, wantBounds[i])
		}
	}
	if doc.DurationMs != 110000 {
		t.Errorf("DurationMs = %d, want 110000", doc.DurationMs)
	}
	if saver.saves != 1 || saver.jobID != "job-1" {
		t.Errorf("saver: %d saves for %q", saver.saves, saver.jobID)
	}
}

func TestDriftCorrectionSkippedUnderFloor(t *testing.T) {
	saver := &fakeSaver{}
	engine := newEngine(saver, nil)
	doc := testDocument()

	session := engine.Attach("job-1", doc, jobs.AlignmentFallback, &fakeDecoder{})
	session.Loaded(context.Background(), 101500)

	if doc.Segments[2].EndMs != 100000 {
		t.Errorf("segments rescaled for a 1500ms difference")
	}
	if saver.saves != 0 {
		t.Errorf("saver called %d times", saver.saves)
	}
}

func TestDriftCorrectionSkippedWhenAligned(t *testing.T) {
	saver := &fakeSaver{}
	engine := newEngine(saver, nil)
	doc := testDocument()

	session := engine.Attach("job-1", doc, jobs.AlignmentAligned, &fakeDecoder{})
	session.Loaded(context.Background(), 110000)

	if doc.Segments[2].EndMs != 100000 {
		t.Error("server-aligned timestamps were rescaled")
	}
	if saver.saves != 0 {
		t.Errorf("saver called %d times", saver.saves)
	}
}

func TestDriftCorrectionAppliedOncePerSession(t *testing.T) {
	saver := &fakeSaver{}
	engine := newEngine(saver, nil)
	doc := testDocument()

	session := engine.Attach("job-1", doc, jobs.AlignmentFallback, &fakeDecoder{})
	session.Loaded(context.Background(), 110000)
	// A second metadata event in the same session must not rescale again.
	session.Loaded(context.Background(), 130000)

	if doc.Segments[2].EndMs != 110000 {
		t.Errorf("EndMs = %d, want 110000 from the single correction", doc.Segments[2].EndMs)
	}
	if saver.saves != 1 {
		t.Errorf("saver called %d times, want 1", saver.saves)
	}
}

func TestScrubCommitsExactlyOneSeek(t *testing.T) {
	decoder := &fakeDecoder{}
	engine := newEngine(nil, nil)
	session := engine.Attach("job-1", testDocument(), jobs.AlignmentAligned, decoder)
	session.Loaded(context.Background(), 100000)
	session.TimeUpdate(10000)

	engine.BeginScrub()
	for pos := int64(12000); pos <= 50000; pos += 2000 {
		engine.OnScrub(pos)
	}
	if len(decoder.seeks) != 0 {
		t.Fatalf("decoder seeked %d times during drag", len(decoder.seeks))
	}
	if got := engine.PositionMs(); got != 50000 {
		t.Fatalf("visual position = %d, want 50000", got)
	}

	engine.EndScrub()
	if len(decoder.seeks) != 1 || decoder.seeks[0] != 50000 {
		t.Fatalf("seeks = %v, want exactly [50000]", decoder.seeks)
	}

	// Global pointer-up safety net may fire a second release.
	engine.EndScrub()
	if len(decoder.seeks) != 1 {
		t.Fatalf("redundant release seeked again: %v", decoder.seeks)
	}
}

func TestActiveSegmentFollowsPlaybackOnlyWhilePlaying(t *testing.T) {
	decoder := &fakeDecoder{}
	scroller := &fakeScroller{}
	engine := newEngine(nil, scroller)
	session := engine.Attach("job-1", testDocument(), jobs.AlignmentAligned, decoder)
	session.Loaded(context.Background(), 100000)

	// Paused: active segment updates but the view is not scrolled.
	session.TimeUpdate(45000)
	if got := engine.ActiveSegment(); got != 1 {
		t.Fatalf("active segment = %d, want 1", got)
	}
	if len(scroller.scrolls) != 0 {
		t.Fatalf("scrolled while not playing: %v", scroller.scrolls)
	}

	if err := engine.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	session.TimeUpdate(75000)
	if got := engine.ActiveSegment(); got != 2 {
		t.Fatalf("active segment = %d, want 2", got)
	}
	if len(scroller.scrolls) != 1 || scroller.scrolls[0] != 2 {
		t.Fatalf("scrolls = %v, want [2]", scroller.scrolls)
	}

	// Same segment again: no repeat scroll.
	session.TimeUpdate(76000)
	if len(scroller.scrolls) != 1 {
		t.Fatalf("scrolled again within the same segment: %v", scroller.scrolls)
	}
}

func TestStaleSessionEventsIgnored(t *testing.T) {
	engine := newEngine(nil, nil)
	firstDecoder := &fakeDecoder{}
	stale := engine.Attach("job-1", testDocument(), jobs.AlignmentAligned, firstDecoder)
	stale.Loaded(context.Background(), 100000)

	doc := testDocument()
	fresh := engine.Attach("job-2", doc, jobs.AlignmentFallback, &fakeDecoder{})
	if !firstDecoder.closed {
		t.Fatal("previous decoder not closed on re-attach")
	}

	// Events from the torn-down session must not touch the new one.
	stale.TimeUpdate(99000)
	stale.Ended()
	stale.DecoderError(errors.New("stale failure"))

	if got := engine.State(); got != syncengine.StateLoading {
		t.Fatalf("state = %v, want loading untouched by stale events", got)
	}
	if got := engine.PositionMs(); got != 0 {
		t.Fatalf("position = %d, want 0", got)
	}

	fresh.Loaded(context.Background(), 110000)
	if got := engine.State(); got != syncengine.StateReady {
		t.Fatalf("state = %v, want ready", got)
	}
}

func TestDecoderErrorEntersNoAudioMode(t *testing.T) {
	engine := newEngine(nil, nil)
	session := engine.Attach("job-1", testDocument(), jobs.AlignmentAligned, &fakeDecoder{})
	session.Loaded(context.Background(), 100000)
	session.DecoderError(errors.New("corrupt stream"))

	if got := engine.State(); got != syncengine.StateNoAudio {
		t.Fatalf("state = %v, want no-audio", got)
	}
	if got := engine.ActiveSegment(); got != -1 {
		t.Fatalf("active segment = %d", got)
	}
}

func TestPlaybackLifecycle(t *testing.T) {
	decoder := &fakeDecoder{}
	engine := newEngine(nil, nil)
	session := engine.Attach("job-1", testDocument(), jobs.AlignmentAligned, decoder)

	if got := engine.State(); got != syncengine.StateLoading {
		t.Fatalf("state after attach = %v", got)
	}
	// Play before metadata is a no-op.
	if err := engine.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if decoder.plays != 0 {
		t.Fatal("decoder played while loading")
	}

	session.Loaded(context.Background(), 100000)
	if err := engine.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if got := engine.State(); got != syncengine.StatePlaying {
		t.Fatalf("state = %v", got)
	}

	engine.Pause()
	if got := engine.State(); got != syncengine.StatePaused {
		t.Fatalf("state = %v", got)
	}
	if decoder.pauses != 1 {
		t.Fatalf("pauses = %d", decoder.pauses)
	}

	session.Ended()
	if got := engine.State(); got != syncengine.StateEnded {
		t.Fatalf("state = %v", got)
	}
	if got := engine.PositionMs(); got != 100000 {
		t.Fatalf("position at end = %d", got)
	}

	engine.Detach()
	if got := engine.State(); got != syncengine.StateIdle {
		t.Fatalf("state after detach = %v", got)
	}
	if !decoder.closed {
		t.Fatal("decoder not closed on detach")
	}
}
