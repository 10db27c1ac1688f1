package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/kbinani/screenshot"
)

// ScreenshotCapturer captures through the platform native API wrapped by
// kbinani/screenshot (GDI on Windows, CoreGraphics on macOS, XShm on Linux).
type ScreenshotCapturer struct{}

// NewScreenshotCapturer creates a screenshot capturer
func NewScreenshotCapturer() (*ScreenshotCapturer, error) {
	return &ScreenshotCapturer{}, nil
}

func (c *ScreenshotCapturer) Start() error {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return fmt.Errorf("no active displays")
	}
	logger.WithComponent("screenshot-capturer").Info().
		Int("displays", n).
		Str("primary", screenshot.GetDisplayBounds(0).String()).
		Msg("Screenshot capturer initialized")
	return nil
}

func (c *ScreenshotCapturer) Stop() error {
	return nil
}

func (c *ScreenshotCapturer) Name() string {
	return "screenshot"
}

func (c *ScreenshotCapturer) IsAvailable() bool {
	return screenshot.NumActiveDisplays() > 0
}

// CaptureRegion captures an arbitrary rectangle of the virtual desktop
func (c *ScreenshotCapturer) CaptureRegion(x, y, width, height int) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(image.Rect(x, y, x+width, y+height))
	if err != nil {
		return nil, fmt.Errorf("failed to capture rect: %w", err)
	}
	return img, nil
}

// ScreenBounds returns the union of all active displays
func (c *ScreenshotCapturer) ScreenBounds() image.Rectangle {
	n := screenshot.NumActiveDisplays()
	var union image.Rectangle
	for i := 0; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union
}
