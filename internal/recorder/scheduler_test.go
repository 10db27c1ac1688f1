package recorder

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
)

type frameLog struct {
	mu      sync.Mutex
	sizes   []image.Point
	elapsed []time.Duration
	pool    pixel.Pool
}

func (l *frameLog) onFrame(frame *pixel.Buffer, img *image.RGBA, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sizes = append(l.sizes, image.Pt(frame.Width, frame.Height))
	l.elapsed = append(l.elapsed, elapsed)
	l.pool.Put(frame)
}

func (l *frameLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sizes)
}

func newTestScheduler(cfg SchedulerConfig, capt *scriptedCapturer) (*Scheduler, *fakeClock, *frameLog, *int) {
	clock := newFakeClock()
	pool := newTrackingPool()
	log := &frameLog{pool: pool}
	maxCalls := new(int)
	s := NewScheduler(cfg, capt, pool, clock, log.onFrame, func() { *maxCalls++ })
	return s, clock, log, maxCalls
}

func TestSchedulerDeliversOnTicks(t *testing.T) {
	cfg := SchedulerConfig{Region: image.Rect(10, 10, 110, 60), Interval: 33 * time.Millisecond, Scale: 1}
	s, clock, log, _ := newTestScheduler(cfg, &scriptedCapturer{})

	s.Start()
	s.Start() // no-op while running
	if clock.tickerCount() != 1 {
		t.Fatalf("Start created %d tickers", clock.tickerCount())
	}

	ticker := clock.lastTicker()
	for i := 0; i < 3; i++ {
		clock.Advance(33 * time.Millisecond)
		ticker.ch <- clock.Now()
	}
	s.Stop()
	s.Stop()

	if log.count() != 3 {
		t.Fatalf("delivered %d frames, want 3", log.count())
	}
	if log.sizes[0] != image.Pt(100, 50) {
		t.Fatalf("frame size %v", log.sizes[0])
	}
	if log.elapsed[2] != 99*time.Millisecond {
		t.Fatalf("elapsed %v", log.elapsed[2])
	}
	if s.Running() {
		t.Fatal("still running after Stop")
	}
}

func TestSchedulerHalfScale(t *testing.T) {
	cfg := SchedulerConfig{Region: image.Rect(0, 0, 101, 60), Interval: 33 * time.Millisecond, Scale: 0.5}
	s, _, log, _ := newTestScheduler(cfg, &scriptedCapturer{})
	if !s.tick() {
		t.Fatal("tick stopped")
	}
	if log.sizes[0] != image.Pt(51, 30) {
		t.Fatalf("scaled size %v", log.sizes[0])
	}
}

func TestSchedulerSkipsFailedTicks(t *testing.T) {
	capt := &scriptedCapturer{
		failOn:  map[int]bool{1: true},
		panicOn: map[int]bool{3: true},
	}
	cfg := SchedulerConfig{Region: image.Rect(0, 0, 8, 8), Interval: 33 * time.Millisecond}
	s, _, log, _ := newTestScheduler(cfg, capt)

	for i := 0; i < 5; i++ {
		if !s.tick() {
			t.Fatalf("tick %d stopped the loop", i)
		}
	}
	if log.count() != 3 {
		t.Fatalf("delivered %d, want 3", log.count())
	}
	if s.failures != 2 {
		t.Fatalf("failures = %d", s.failures)
	}
}

func TestSchedulerRejectsWrongSize(t *testing.T) {
	capt := &scriptedCapturer{size: image.Pt(4, 4)}
	cfg := SchedulerConfig{Region: image.Rect(0, 0, 8, 8), Interval: 33 * time.Millisecond}
	s, _, log, _ := newTestScheduler(cfg, capt)
	s.tick()
	if log.count() != 0 {
		t.Fatal("mis-sized frame delivered")
	}
}

func TestSchedulerMaxDuration(t *testing.T) {
	cfg := SchedulerConfig{
		Region:      image.Rect(0, 0, 10, 10),
		Interval:    33 * time.Millisecond,
		MaxDuration: 2 * time.Second,
	}
	s, clock, log, maxCalls := newTestScheduler(cfg, &scriptedCapturer{})
	s.Start()
	defer s.Stop()

	stoppedAt := -1
	for i := 1; i <= 100; i++ {
		clock.Advance(33 * time.Millisecond)
		if !s.tick() && stoppedAt < 0 {
			stoppedAt = i
		}
	}

	// 60 * 33 ms = 1980 ms is the last tick inside the limit
	if log.count() != 60 {
		t.Fatalf("captured %d frames, want 60", log.count())
	}
	if stoppedAt != 61 {
		t.Fatalf("stopped at tick %d", stoppedAt)
	}
	if *maxCalls != 1 {
		t.Fatalf("max duration signalled %d times", *maxCalls)
	}
	if s.Running() {
		t.Fatal("scheduler reports running after cutoff")
	}
}

func TestSchedulerLoopExitsAtCutoff(t *testing.T) {
	cfg := SchedulerConfig{
		Region:      image.Rect(0, 0, 4, 4),
		Interval:    33 * time.Millisecond,
		MaxDuration: 100 * time.Millisecond,
	}
	s, clock, _, maxCalls := newTestScheduler(cfg, &scriptedCapturer{})
	s.Start()
	ticker := clock.lastTicker()

	clock.Advance(time.Second)
	ticker.ch <- clock.Now()

	// The loop has returned, so Stop must not block
	finished := make(chan struct{})
	go func() {
		s.Stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after the cutoff")
	}
	if *maxCalls != 1 {
		t.Fatalf("max duration signalled %d times", *maxCalls)
	}
}
