package recorder

import (
	"sync"

	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
)

// KeptFrame is a retained frame and how long it stays on screen.
type KeptFrame struct {
	Buffer     *pixel.Buffer
	DurationMs int
}

// Stats counts what a FrameStore has seen.
type Stats struct {
	Captured int `json:"captured"`
	Skipped  int `json:"skipped"`
	Kept     int `json:"kept"`
	TotalMs  int `json:"total_ms"`
	Bytes    int `json:"bytes"`
}

// FrameStore deduplicates incoming frames into an append-only list of
// KeptFrames. Add runs on the capture goroutine while Finalize and Release
// come from the caller stopping the session, so all state sits behind mu.
//
// Every buffer handed to Add is owned by the store from then on and goes
// back to the pool exactly once: immediately for duplicates, on Release for
// kept frames.
type FrameStore struct {
	preset     Preset
	intervalMs int
	pool       pixel.Pool

	mu       sync.Mutex
	frames   []KeptFrame
	previous *pixel.Buffer
	captured int
	skipped  int
	sealed   bool
}

// NewFrameStore creates an empty store.
func NewFrameStore(preset Preset, intervalMs int, pool pixel.Pool) *FrameStore {
	if pool == nil {
		pool = pixel.NewPool()
	}
	return &FrameStore{
		preset:     preset,
		intervalMs: intervalMs,
		pool:       pool,
	}
}

// Add takes ownership of frame and reports whether it became a new
// KeptFrame. A duplicate extends the last KeptFrame by one interval.
func (s *FrameStore) Add(frame *pixel.Buffer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		s.pool.Put(frame)
		return false
	}
	s.captured++

	if s.preset.SkipDuplicates && s.previous != nil && len(s.frames) > 0 {
		diff := pixel.SampledDifference(frame, s.previous, pixel.DefaultSampleStep)
		if diff < s.preset.Threshold {
			s.frames[len(s.frames)-1].DurationMs += s.intervalMs
			s.skipped++
			s.pool.Put(frame)
			return false
		}
	}

	s.frames = append(s.frames, KeptFrame{Buffer: frame, DurationMs: s.intervalMs})

	if s.preset.SkipDuplicates {
		// The comparison reference is a copy: the kept buffer may be
		// rewritten by redaction before the session ends.
		if s.previous != nil {
			s.pool.Put(s.previous)
		}
		s.previous = pixel.CloneFrom(s.pool, frame)
	}
	return true
}

// Frames returns a snapshot of the kept frames. Buffers are shared.
func (s *FrameStore) Frames() []KeptFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]KeptFrame(nil), s.frames...)
}

// Stats returns the current counters.
func (s *FrameStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Captured: s.captured, Skipped: s.skipped, Kept: len(s.frames)}
	for _, f := range s.frames {
		st.TotalMs += f.DurationMs
		st.Bytes += f.Buffer.SizeBytes()
	}
	return st
}

// Finalize seals the store and returns the kept frames in capture order.
// Frames added afterwards are discarded.
func (s *FrameStore) Finalize() []KeptFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
	return append([]KeptFrame(nil), s.frames...)
}

// Release returns every buffer to the pool and empties the store.
func (s *FrameStore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.frames {
		s.pool.Put(f.Buffer)
	}
	if s.previous != nil {
		s.pool.Put(s.previous)
	}
	s.frames = nil
	s.previous = nil
	s.sealed = true
}
