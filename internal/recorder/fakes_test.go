package recorder

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/bryanchriswhite/FocusRecorder/internal/output"
	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) lastTicker() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

// manualTicker only fires when a test sends on it.
type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               {}

// trackingPool allocates fresh buffers and records which are still out.
type trackingPool struct {
	mu        sync.Mutex
	live      map[*pixel.Buffer]struct{}
	allocated int
	badPuts   int
}

func newTrackingPool() *trackingPool {
	return &trackingPool{live: make(map[*pixel.Buffer]struct{})}
}

func (p *trackingPool) Get(w, h int) *pixel.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	b := pixel.New(w, h)
	p.live[b] = struct{}{}
	p.allocated++
	return b
}

func (p *trackingPool) Put(b *pixel.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.live[b]; !ok {
		p.badPuts++
		return
	}
	delete(p.live, b)
}

func (p *trackingPool) outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// scriptedCapturer returns solid frames whose colour is picked per call.
type scriptedCapturer struct {
	mu      sync.Mutex
	colours []color.RGBA
	failOn  map[int]bool
	panicOn map[int]bool
	size    image.Point
	pattern func(img *image.RGBA)
	calls   int
}

func (c *scriptedCapturer) Start() error      { return nil }
func (c *scriptedCapturer) Stop() error       { return nil }
func (c *scriptedCapturer) Name() string      { return "scripted" }
func (c *scriptedCapturer) IsAvailable() bool { return true }

func (c *scriptedCapturer) CaptureRegion(x, y, width, height int) (*image.RGBA, error) {
	c.mu.Lock()
	idx := c.calls
	c.calls++
	c.mu.Unlock()

	if c.panicOn[idx] {
		panic("display went away")
	}
	if c.failOn[idx] {
		return nil, errors.New("transient failure")
	}
	if c.size != (image.Point{}) {
		width, height = c.size.X, c.size.Y
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	col := color.RGBA{A: 255}
	if len(c.colours) > 0 {
		col = c.colours[min(idx, len(c.colours)-1)]
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = col.R, col.G, col.B, col.A
	}
	if c.pattern != nil {
		c.pattern(img)
	}
	return img, nil
}

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
)

func repeat(c color.RGBA, n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// countingPreview records how many frames reach the preview.
type countingPreview struct {
	mu     sync.Mutex
	frames int
}

func (p *countingPreview) Start() error    { return nil }
func (p *countingPreview) Stop() error     { return nil }
func (p *countingPreview) Name() string    { return "counting" }
func (p *countingPreview) IsRunning() bool { return true }

func (p *countingPreview) WriteFrame(*image.RGBA) error {
	p.mu.Lock()
	p.frames++
	p.mu.Unlock()
	return nil
}

// failingSink hands out artifacts whose writes always fail.
type failingSink struct {
	aborted   bool
	committed bool
}

func (s *failingSink) Name() string { return "broken.gif" }

func (s *failingSink) Open() (output.Artifact, error) {
	return &failingArtifact{sink: s}, nil
}

type failingArtifact struct {
	sink *failingSink
}

func (a *failingArtifact) Write([]byte) (int, error) { return 0, errors.New("disk full") }
func (a *failingArtifact) Commit() error             { a.sink.committed = true; return nil }
func (a *failingArtifact) Abort() error              { a.sink.aborted = true; return nil }

// unopenableSink fails before any byte is written.
type unopenableSink struct{}

func (unopenableSink) Name() string                   { return "nowhere.gif" }
func (unopenableSink) Open() (output.Artifact, error) { return nil, errors.New("permission denied") }

func drain(ch chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func countType(events []Event, t EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == t {
			n++
		}
	}
	return n
}
