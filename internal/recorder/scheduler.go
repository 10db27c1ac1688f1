package recorder

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/capture"
	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
)

// FrameFunc receives each captured frame on the scheduler goroutine. The
// buffer is owned by the callee; img is the scaled capture it came from and
// must not be retained.
type FrameFunc func(frame *pixel.Buffer, img *image.RGBA, elapsed time.Duration)

// SchedulerConfig is fixed for the lifetime of a session.
type SchedulerConfig struct {
	Region      image.Rectangle
	Interval    time.Duration
	Scale       float64
	MaxDuration time.Duration
}

// Scheduler captures the configured region once per interval and hands
// every frame to onFrame synchronously. A slow capture delays the next tick
// instead of overlapping it. Once MaxDuration has elapsed the scheduler
// stops capturing and calls onMaxDuration once.
//
// onFrame and onMaxDuration run on the scheduler goroutine and must not
// call Stop.
type Scheduler struct {
	cfg           SchedulerConfig
	capturer      capture.Capturer
	pool          pixel.Pool
	clock         Clock
	onFrame       FrameFunc
	onMaxDuration func()
	width         int
	height        int

	mu        sync.Mutex
	running   bool
	expired   bool
	startedAt time.Time
	ticks     int
	failures  int
	stopCh    chan struct{}
	done      chan struct{}
}

// NewScheduler creates a stopped scheduler
func NewScheduler(cfg SchedulerConfig, capturer capture.Capturer, pool pixel.Pool, clock Clock, onFrame FrameFunc, onMaxDuration func()) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	if pool == nil {
		pool = pixel.NewPool()
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	w, h := pixel.ScaledSize(cfg.Region.Dx(), cfg.Region.Dy(), cfg.Scale)
	return &Scheduler{
		cfg:           cfg,
		capturer:      capturer,
		pool:          pool,
		clock:         clock,
		onFrame:       onFrame,
		onMaxDuration: onMaxDuration,
		width:         w,
		height:        h,
	}
}

// Start begins ticking. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.expired = false
	s.ticks = 0
	s.failures = 0
	s.startedAt = s.clock.Now()
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	logger.WithComponent("scheduler").Debug().
		Str("region", s.cfg.Region.String()).
		Dur("interval", s.cfg.Interval).
		Float64("scale", s.cfg.Scale).
		Dur("max_duration", s.cfg.MaxDuration).
		Msg("Capture loop started")

	go s.run(s.clock.NewTicker(s.cfg.Interval), s.stopCh, s.done)
}

// Stop halts the timer and waits for an in-flight tick to finish. Frames
// already delivered are left alone.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	logger.WithComponent("scheduler").Debug().
		Int("ticks", s.ticks).
		Int("failures", s.failures).
		Msg("Capture loop stopped")
	s.mu.Unlock()
}

// Running reports whether the loop is active and has not hit the cutoff.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.expired
}

// StartedAt returns the time of the last Start.
func (s *Scheduler) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Scheduler) run(ticker Ticker, stopCh, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			if !s.tick() {
				return
			}
		}
	}
}

// tick performs one capture step. It returns false once the maximum
// duration has been reached.
func (s *Scheduler) tick() bool {
	s.mu.Lock()
	if s.expired {
		s.mu.Unlock()
		return false
	}
	elapsed := s.clock.Now().Sub(s.startedAt)
	if s.cfg.MaxDuration > 0 && elapsed >= s.cfg.MaxDuration {
		s.expired = true
		s.mu.Unlock()

		logger.WithComponent("scheduler").Info().
			Dur("elapsed", elapsed).
			Dur("max_duration", s.cfg.MaxDuration).
			Msg("Maximum recording duration reached")
		if s.onMaxDuration != nil {
			s.onMaxDuration()
		}
		return false
	}
	s.ticks++
	s.mu.Unlock()

	frame, img, err := s.grab()
	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		logger.WithComponent("scheduler").Debug().Err(err).Msg("Capture failed, skipping tick")
		return true
	}

	s.onFrame(frame, img, elapsed)
	return true
}

// grab captures the region into a pooled buffer at the configured scale.
func (s *Scheduler) grab() (frame *pixel.Buffer, img *image.RGBA, err error) {
	defer func() {
		if p := recover(); p != nil {
			frame, img, err = nil, nil, fmt.Errorf("capture panicked: %v", p)
		}
	}()

	r := s.cfg.Region
	img, err = s.capturer.CaptureRegion(r.Min.X, r.Min.Y, r.Dx(), r.Dy())
	if err != nil {
		return nil, nil, err
	}
	img = pixel.ScaleRGBA(img, s.cfg.Scale)

	if b := img.Bounds(); b.Dx() != s.width || b.Dy() != s.height {
		return nil, nil, fmt.Errorf("captured %dx%d, expected %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}

	frame = s.pool.Get(s.width, s.height)
	if err := frame.FillFromRGBA(img); err != nil {
		s.pool.Put(frame)
		return nil, nil, err
	}
	return frame, img, nil
}
