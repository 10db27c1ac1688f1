// Package recorder turns a stream of screen captures into a deduplicated,
// variable-duration frame list and finalizes it into an animated GIF.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/gifenc"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/output"
	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
	"github.com/bryanchriswhite/FocusRecorder/internal/system"
	"github.com/google/uuid"
)

var (
	ErrNoFrames         = errors.New("no frames recorded")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("not recording")
	ErrInvalidRegion    = errors.New("capture region must have positive width and height")
)

// State is the recorder lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Settings is the per-session configuration, snapshotted at Start.
type Settings struct {
	FPS         int
	Quality     Quality
	MaxDuration time.Duration
	// Redact rectangles are relative to the capture region at native
	// resolution and are mosaicked on every frame before encoding.
	Redact          []image.Rectangle
	RedactBlockSize int
	Encode          gifenc.Options
}

// Options wires the recorder's collaborators. Zero values select the real
// clock, a fresh buffer pool and no preview.
type Options struct {
	Clock   Clock
	Pool    pixel.Pool
	Preview output.FrameWriter
}

// Result describes a finalized recording.
type Result struct {
	SessionID string `json:"session_id"`
	Output    string `json:"output,omitempty"`
	Stats     Stats  `json:"stats"`
}

// Status is a point-in-time view of the recorder.
type Status struct {
	State              State   `json:"state"`
	SessionID          string  `json:"session_id,omitempty"`
	Quality            Quality `json:"quality,omitempty"`
	FPS                int     `json:"fps,omitempty"`
	Region             string  `json:"region,omitempty"`
	ElapsedMs          int64   `json:"elapsed_ms"`
	MaxDurationReached bool    `json:"max_duration_reached"`
	Stats              Stats   `json:"stats"`
}

// Recorder owns at most one recording session at a time.
type Recorder struct {
	capturer capture.Capturer
	clock    Clock
	pool     pixel.Pool
	preview  output.FrameWriter

	mu      sync.Mutex
	state   State
	session *session

	listenersMu sync.RWMutex
	listeners   []chan Event
}

type session struct {
	id         string
	region     image.Rectangle
	settings   Settings
	preset     Preset
	intervalMs int
	store      *FrameStore
	sched      *Scheduler
	maxReached atomic.Bool
}

// New creates an idle recorder capturing through capturer.
func New(capturer capture.Capturer, opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Pool == nil {
		opts.Pool = pixel.NewPool()
	}
	return &Recorder{
		capturer: capturer,
		clock:    opts.Clock,
		pool:     opts.Pool,
		preview:  opts.Preview,
	}
}

// Start begins a session over region and returns its id.
func (r *Recorder) Start(region image.Rectangle, settings Settings) (string, error) {
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return "", fmt.Errorf("%w: %v", ErrInvalidRegion, region)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return "", ErrAlreadyRecording
	}

	if !ValidFPS(settings.FPS) {
		settings.FPS = DefaultFPS
	}
	preset := PresetFor(settings.Quality)
	settings.Quality = preset.Quality
	settings.Redact = append([]image.Rectangle(nil), settings.Redact...)

	sess := &session{
		id:         uuid.NewString(),
		region:     region,
		settings:   settings,
		preset:     preset,
		intervalMs: IntervalMs(settings.FPS),
	}
	sess.store = NewFrameStore(preset, sess.intervalMs, r.pool)
	sess.sched = NewScheduler(SchedulerConfig{
		Region:      region,
		Interval:    time.Duration(sess.intervalMs) * time.Millisecond,
		Scale:       preset.Scale,
		MaxDuration: settings.MaxDuration,
	}, r.capturer, r.pool, r.clock,
		func(frame *pixel.Buffer, img *image.RGBA, elapsed time.Duration) {
			r.handleFrame(sess, frame, img, elapsed)
		},
		func() { r.handleMaxDuration(sess) },
	)

	r.session = sess
	r.state = StateRecording
	sess.sched.Start()

	logger.WithComponent("recorder").Info().
		Str("session_id", sess.id).
		Str("region", region.String()).
		Int("fps", settings.FPS).
		Str("quality", string(preset.Quality)).
		Dur("max_duration", settings.MaxDuration).
		Str("capturer", r.capturer.Name()).
		Object("memory", system.Memory()).
		Msg("Recording started")

	return sess.id, nil
}

func (r *Recorder) handleFrame(sess *session, frame *pixel.Buffer, img *image.RGBA, elapsed time.Duration) {
	if r.preview != nil && r.preview.IsRunning() {
		if err := r.preview.WriteFrame(img); err != nil {
			logger.WithComponent("recorder").Debug().Err(err).Msg("Preview write failed")
		}
	}
	sess.store.Add(frame)
	r.emit(Event{Type: EventProgress, SessionID: sess.id, ElapsedMs: elapsed.Milliseconds()})
}

func (r *Recorder) handleMaxDuration(sess *session) {
	sess.maxReached.Store(true)
	logger.WithComponent("recorder").Warn().
		Str("session_id", sess.id).
		Dur("max_duration", sess.settings.MaxDuration).
		Msg("Recording stopped at maximum duration")
	r.emit(Event{Type: EventMaxDurationReached, SessionID: sess.id})
}

// StopAndEncode stops capturing and writes the recording to sink. Buffers
// are released whether or not encoding succeeds. Failures are returned and
// also published as an EventError.
func (r *Recorder) StopAndEncode(ctx context.Context, sink output.Sink) (Result, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return Result{}, ErrNotRecording
	}
	sess := r.session
	r.state = StateFinalizing
	r.mu.Unlock()

	defer r.teardown(sess)

	sess.sched.Stop()
	frames := sess.store.Finalize()
	res := Result{SessionID: sess.id, Stats: sess.store.Stats()}

	log := logger.WithComponent("recorder").With().Str("session_id", sess.id).Logger()

	if len(frames) == 0 {
		r.fail(sess, ErrNoFrames)
		return res, ErrNoFrames
	}

	r.redact(sess, frames)

	started := time.Now()
	if err := r.encode(ctx, sess, frames, sink); err != nil {
		err = fmt.Errorf("failed to encode %s: %w", sink.Name(), err)
		r.fail(sess, err)
		return res, err
	}
	res.Output = sink.Name()

	log.Info().
		Str("output", res.Output).
		Int("frames", res.Stats.Kept).
		Int("captured", res.Stats.Captured).
		Int("skipped", res.Stats.Skipped).
		Int("duration_ms", res.Stats.TotalMs).
		Int("kept_bytes", res.Stats.Bytes).
		Dur("encode_time", time.Since(started)).
		Object("memory", system.Memory()).
		Msg("Recording saved")

	r.emit(Event{Type: EventCompleted, SessionID: sess.id, Output: res.Output, ElapsedMs: int64(res.Stats.TotalMs)})
	return res, nil
}

// Cancel stops capturing and discards every frame without encoding.
func (r *Recorder) Cancel() error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	sess := r.session
	r.state = StateCancelled
	r.mu.Unlock()

	sess.sched.Stop()
	sess.store.Finalize()
	stats := sess.store.Stats()
	r.teardown(sess)

	logger.WithComponent("recorder").Info().
		Str("session_id", sess.id).
		Int("discarded", stats.Kept).
		Msg("Recording cancelled")
	r.emit(Event{Type: EventCancelled, SessionID: sess.id})
	return nil
}

// Status returns the current state and counters.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	state, sess := r.state, r.session
	r.mu.Unlock()

	st := Status{State: state}
	if sess == nil {
		return st
	}
	st.SessionID = sess.id
	st.Quality = sess.preset.Quality
	st.FPS = sess.settings.FPS
	st.Region = sess.region.String()
	st.MaxDurationReached = sess.maxReached.Load()
	st.Stats = sess.store.Stats()
	if state == StateRecording {
		st.ElapsedMs = r.clock.Now().Sub(sess.sched.StartedAt()).Milliseconds()
	} else {
		st.ElapsedMs = int64(st.Stats.TotalMs)
	}
	return st
}

func (r *Recorder) fail(sess *session, err error) {
	logger.WithComponent("recorder").Error().
		Err(err).
		Str("session_id", sess.id).
		Msg("Recording failed")
	r.emit(Event{Type: EventError, SessionID: sess.id, Message: err.Error()})
}

func (r *Recorder) teardown(sess *session) {
	sess.store.Release()

	r.mu.Lock()
	if r.session == sess {
		r.session = nil
		r.state = StateIdle
	}
	r.mu.Unlock()
}

// redact mosaics the configured rectangles on every kept frame, mapping
// them into the preset's resolution.
func (r *Recorder) redact(sess *session, frames []KeptFrame) {
	if len(sess.settings.Redact) == 0 {
		return
	}
	scale := sess.preset.Scale
	block := sess.settings.RedactBlockSize
	if block <= 0 {
		block = pixel.DefaultMosaicBlockSize
	}
	block = max(1, int(math.Round(float64(block)*scale)))

	for _, rect := range sess.settings.Redact {
		scaled := ScaleRect(rect, scale)
		for _, f := range frames {
			pixel.Mosaic(f.Buffer, scaled, block)
		}
	}
}

func (r *Recorder) encode(ctx context.Context, sess *session, frames []KeptFrame, sink output.Sink) error {
	artifact, err := sink.Open()
	if err != nil {
		return err
	}

	gf := make([]gifenc.Frame, len(frames))
	for i, f := range frames {
		gf[i] = gifenc.Frame{Image: f.Buffer, DurationMs: f.DurationMs}
	}
	opts := sess.settings.Encode
	opts.DefaultDelayMs = sess.intervalMs

	if err := gifenc.Encode(ctx, artifact, gf, opts); err != nil {
		if abortErr := artifact.Abort(); abortErr != nil {
			logger.WithComponent("recorder").Warn().Err(abortErr).Msg("Failed to discard partial output")
		}
		return err
	}
	return artifact.Commit()
}

// ScaleRect maps r by factor, growing it outward to whole pixels.
func ScaleRect(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1 || factor <= 0 {
		return r
	}
	return image.Rect(
		int(math.Floor(float64(r.Min.X)*factor)),
		int(math.Floor(float64(r.Min.Y)*factor)),
		int(math.Ceil(float64(r.Max.X)*factor)),
		int(math.Ceil(float64(r.Max.Y)*factor)),
	)
}
