package syncengine

import (
	"context"
	"log/slog"
	"sync"

	"recap/internal/jobs"
	"recap/internal/logging"
	"recap/internal/transcript"
)

// State is the engine's position in the playback lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	// StateNoAudio is entered on a decoder error. The transcript stays
	// readable; only playback is disabled.
	StateNoAudio
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateNoAudio:
		return "no-audio"
	default:
		return "unknown"
	}
}

// Decoder is the audio backend the engine drives. Implementations deliver
// their asynchronous notifications through the Session returned by Attach.
type Decoder interface {
	Play() error
	Pause()
	Seek(positionMs int64)
	Close()
}

// DocumentSaver persists drift-corrected segments so future sessions don't
// repeat the correction.
type DocumentSaver interface {
	SaveDocument(ctx context.Context, jobID string, doc *transcript.Document) error
}

// Scroller brings the active transcript segment into view.
type Scroller interface {
	ScrollTo(segmentIndex int)
}

// Options configures an Engine.
type Options struct {
	// DriftAbsFloorMs and DriftRelFloor are the two floors a duration
	// mismatch must exceed before drift correction runs.
	DriftAbsFloorMs int64
	DriftRelFloor   float64
	Saver           DocumentSaver
	Scroller        Scroller
	Logger          *slog.Logger
}

// Engine keeps the current playback time consistent between the decoder
// position, the highlighted transcript segment, and the scrub control. It is
// single-threaded and event-driven; the mutex only guards against decoder
// callbacks racing UI calls.
type Engine struct {
	mu sync.Mutex

	opts    Options
	logger  *slog.Logger
	session *Session

	state           State
	jobID           string
	doc             *transcript.Document
	alignmentStatus jobs.AlignmentStatus
	decoder         Decoder

	positionMs    int64
	durationMs    int64
	driftApplied  bool
	activeSegment int

	scrubbing  bool
	scrubPosMs int64
}

// New constructs an idle engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		opts:          opts,
		logger:        logging.NewComponentLogger(logger, "syncengine"),
		state:         StateIdle,
		activeSegment: -1,
	}
}

// Session ties decoder notifications to one Attach call. A stale session's
// events are dropped: switching conversations detaches the old decoder first,
// and anything it delivers afterward must not mutate the new session's state.
type Session struct {
	engine *Engine
}

// Attach tears down any previous decoder and binds a new one for the given
// job document. The engine enters loading until the decoder reports metadata.
func (e *Engine) Attach(jobID string, doc *transcript.Document, status jobs.AlignmentStatus, decoder Decoder) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.detachLocked()

	session := &Session{engine: e}
	e.session = session
	e.jobID = jobID
	e.doc = doc
	e.alignmentStatus = status
	e.decoder = decoder
	e.state = StateLoading
	e.positionMs = 0
	e.durationMs = 0
	e.driftApplied = false
	e.activeSegment = -1
	e.scrubbing = false
	return session
}

// Detach releases the current decoder and returns the engine to idle.
func (e *Engine) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detachLocked()
}

func (e *Engine) detachLocked() {
	if e.decoder != nil {
		e.decoder.Close()
	}
	e.session = nil
	e.decoder = nil
	e.doc = nil
	e.jobID = ""
	e.state = StateIdle
	e.positionMs = 0
	e.durationMs = 0
	e.activeSegment = -1
	e.scrubbing = false
}

func (e *Engine) current(s *Session) bool {
	return s != nil && e.session == s
}

// Loaded delivers the decoder's metadata notification, carrying the decoded
// audio duration. Drift correction runs here, at most once per session.
func (s *Session) Loaded(ctx context.Context, decodedDurationMs int64) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(s) || e.state != StateLoading {
		return
	}
	e.durationMs = decodedDurationMs
	e.applyDriftLocked(ctx, decodedDurationMs)
	e.state = StateReady
}

// TimeUpdate delivers a decoder position notification and refreshes the
// active segment. Scrolling follows the active segment only while playing so
// the engine doesn't fight manual scrolling while paused.
func (s *Session) TimeUpdate(positionMs int64) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(s) {
		return
	}
	e.positionMs = positionMs

	index := e.segmentAtLocked(positionMs)
	if index == e.activeSegment {
		return
	}
	e.activeSegment = index
	if e.state == StatePlaying && index >= 0 && e.opts.Scroller != nil {
		e.opts.Scroller.ScrollTo(index)
	}
}

// Ended delivers the decoder's end-of-stream notification.
func (s *Session) Ended() {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(s) {
		return
	}
	e.state = StateEnded
	e.positionMs = e.durationMs
}

// DecoderError reports a decoder failure. The transcript remains readable in
// no-audio mode.
func (s *Session) DecoderError(err error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(s) {
		return
	}
	e.logger.Warn("decoder error, entering no-audio mode",
		logging.Args(logging.String(logging.FieldJobID, e.jobID), logging.Error(err))...)
	e.state = StateNoAudio
}

// Play starts or resumes playback.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoder == nil {
		return nil
	}
	switch e.state {
	case StateReady, StatePaused, StateEnded:
		if err := e.decoder.Play(); err != nil {
			return err
		}
		e.state = StatePlaying
	}
	return nil
}

// Pause suspends playback.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePlaying || e.decoder == nil {
		return
	}
	e.decoder.Pause()
	e.state = StatePaused
}

// Seek commits an immediate position change outside of a drag.
func (e *Engine) Seek(positionMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoder == nil || e.scrubbing {
		return
	}
	e.decoder.Seek(positionMs)
	e.positionMs = positionMs
}

// BeginScrub starts a drag. While the drag is in progress the decoder is
// never touched; the engine tracks a visual position instead.
func (e *Engine) BeginScrub() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.decoder == nil || e.scrubbing {
		return
	}
	e.scrubbing = true
	e.scrubPosMs = e.positionMs
}

// OnScrub updates the visual position during a drag.
func (e *Engine) OnScrub(positionMs int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.scrubbing {
		return
	}
	e.scrubPosMs = positionMs
}

// EndScrub commits the drag with exactly one decoder seek. It is idempotent:
// a release caught a second time by the global pointer-up safety net is a
// no-op.
func (e *Engine) EndScrub() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.scrubbing {
		return
	}
	e.scrubbing = false
	if e.decoder == nil {
		return
	}
	e.decoder.Seek(e.scrubPosMs)
	e.positionMs = e.scrubPosMs
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PositionMs returns the displayed position: the visual scrub position during
// a drag, the decoder position otherwise.
func (e *Engine) PositionMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scrubbing {
		return e.scrubPosMs
	}
	return e.positionMs
}

// DurationMs returns the decoded audio duration reported at load.
func (e *Engine) DurationMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationMs
}

// ActiveSegment returns the index of the segment containing the current
// position, or -1.
func (e *Engine) ActiveSegment() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSegment
}

// segmentAtLocked finds the segment whose [start, end) interval contains the
// position. Ranges are gapless and non-overlapping by construction, so a
// linear scan has at most one hit.
func (e *Engine) segmentAtLocked(positionMs int64) int {
	if e.doc == nil {
		return -1
	}
	for i, seg := range e.doc.Segments {
		if positionMs >= seg.StartMs && positionMs < seg.EndMs {
			return i
		}
	}
	return -1
}
