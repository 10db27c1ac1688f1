// Package capture grabs screen regions from the available display backend.
package capture

import (
	"errors"
	"image"
)

// ErrNoBackend is returned when no capture backend can be started.
var ErrNoBackend = errors.New("no capture backend available")

// Capturer defines the interface for screen capture backends.
// A single CaptureRegion call may fail transiently; callers decide whether
// to retry or skip.
type Capturer interface {
	// Start initializes the capturer and any required resources
	Start() error

	// Stop releases resources
	Stop() error

	// CaptureRegion captures a rectangle of the screen in physical pixels
	CaptureRegion(x, y, width, height int) (*image.RGBA, error)

	// Name returns a human-readable name for this capturer
	Name() string

	// IsAvailable checks if this capturer can be used in the current environment
	IsAvailable() bool
}

// Bounder is implemented by capturers that know the size of the screen.
type Bounder interface {
	ScreenBounds() image.Rectangle
}
