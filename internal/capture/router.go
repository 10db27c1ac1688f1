package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
)

// Backend names accepted by NewRouter
const (
	BackendAuto       = "auto"
	BackendScreenshot = "screenshot"
	BackendX11        = "x11"
)

// Factory constructs a capturer. It may fail when the backend is missing.
type Factory func() (Capturer, error)

// Router selects one capture backend and forwards region captures to it
type Router struct {
	mode      string
	order     []string
	factories map[string]Factory

	mu     sync.RWMutex
	active Capturer
}

// NewRouter creates a router for the given backend mode. "auto" tries the
// native screenshot backend first and falls back to X11.
func NewRouter(mode string) (*Router, error) {
	return newRouter(mode, map[string]Factory{
		BackendScreenshot: func() (Capturer, error) { return NewScreenshotCapturer() },
		BackendX11:        func() (Capturer, error) { return NewX11Capturer() },
	})
}

func newRouter(mode string, factories map[string]Factory) (*Router, error) {
	if mode == "" {
		mode = BackendAuto
	}
	var order []string
	switch mode {
	case BackendAuto:
		order = []string{BackendScreenshot, BackendX11}
	case BackendScreenshot, BackendX11:
		order = []string{mode}
	default:
		return nil, fmt.Errorf("unknown capture backend %q", mode)
	}
	return &Router{mode: mode, order: order, factories: factories}, nil
}

// Start initializes the first backend that is available
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil
	}

	log := logger.WithComponent("capture-router")

	for _, name := range r.order {
		factory, ok := r.factories[name]
		if !ok {
			continue
		}
		c, err := factory()
		if err != nil {
			log.Warn().Err(err).Str("backend", name).Msg("Capture backend not available")
			continue
		}
		if !c.IsAvailable() {
			log.Warn().Str("backend", name).Msg("Capture backend reports unavailable")
			continue
		}
		if err := c.Start(); err != nil {
			log.Warn().Err(err).Str("backend", name).Msg("Failed to start capture backend")
			_ = c.Stop()
			continue
		}
		r.active = c
		log.Info().Str("backend", c.Name()).Str("mode", r.mode).Msg("Capture backend selected")
		return nil
	}

	return fmt.Errorf("%w (mode %s)", ErrNoBackend, r.mode)
}

// Stop stops the active backend
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}
	err := r.active.Stop()
	r.active = nil
	return err
}

// CaptureRegion captures a region with the active backend
func (r *Router) CaptureRegion(x, y, width, height int) (*image.RGBA, error) {
	r.mu.RLock()
	c := r.active
	r.mu.RUnlock()

	if c == nil {
		return nil, ErrNoBackend
	}
	return c.CaptureRegion(x, y, width, height)
}

// Name returns the active backend name
func (r *Router) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return "router(" + r.mode + ")"
	}
	return r.active.Name()
}

// IsAvailable returns true once a backend has been started
func (r *Router) IsAvailable() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != nil
}

// ScreenBounds returns the screen size reported by the active backend, or
// an empty rectangle when it cannot tell.
func (r *Router) ScreenBounds() image.Rectangle {
	r.mu.RLock()
	c := r.active
	r.mu.RUnlock()
	if b, ok := c.(Bounder); ok {
		return b.ScreenBounds()
	}
	return image.Rectangle{}
}
