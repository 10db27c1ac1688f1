// Package output holds the destinations a recording is written to: the
// encoded file sink and the live MJPEG preview.
package output

import (
	"image"
)

// FrameWriter receives processed frames while a recording runs.
type FrameWriter interface {
	// Start initializes the output mechanism
	Start() error

	// Stop cleanly shuts down the output
	Stop() error

	// WriteFrame sends a frame to the output
	WriteFrame(frame *image.RGBA) error

	// Name returns a human-readable name for this output type
	Name() string

	// IsRunning returns true if the output is currently active
	IsRunning() bool
}

// Config holds common configuration for frame outputs
type Config struct {
	Width  int
	Height int
	FPS    int
}
