// Package gifenc serializes a sequence of variable-duration frames into an
// animated GIF.
//
// GIF stores delays in hundredths of a second. Delays are derived from
// cumulative millisecond timestamps, so rounding never accumulates: the
// encoded total equals the sum of the frame durations to within 10 ms.
package gifenc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"runtime"

	"github.com/bryanchriswhite/FocusRecorder/internal/logger"
	"github.com/bryanchriswhite/FocusRecorder/internal/pixel"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ErrNoFrames is returned when Encode is called with an empty sequence.
var ErrNoFrames = errors.New("gifenc: no frames")

// maxDelay is the largest delay a GIF graphic control block can carry.
const maxDelay = 0xffff

// DelayMode selects how frame durations reach the container.
type DelayMode string

const (
	// DelayPerFrame writes each frame once with its own delay.
	DelayPerFrame DelayMode = "per_frame"
	// DelayRepeat writes each frame round(duration/interval) times with
	// the interval as delay, for players that ignore per-frame delays.
	DelayRepeat DelayMode = "repeat"
)

// ParseDelayMode maps a config string to a DelayMode.
func ParseDelayMode(s string) (DelayMode, error) {
	switch DelayMode(s) {
	case "", DelayPerFrame:
		return DelayPerFrame, nil
	case DelayRepeat:
		return DelayRepeat, nil
	}
	return "", fmt.Errorf("unknown delay mode %q", s)
}

// Frame is one image with its display duration.
type Frame struct {
	Image      *pixel.Buffer
	DurationMs int
}

// Options controls encoding.
type Options struct {
	// DefaultDelayMs is the frame interval. It is used for frames with no
	// duration and as the unit of DelayRepeat.
	DefaultDelayMs int
	// Workers bounds parallel palette conversion; 0 uses all CPUs.
	Workers int
	// Dither enables Floyd-Steinberg error diffusion.
	Dither    bool
	DelayMode DelayMode
	// LoopCount follows image/gif: 0 loops forever, -1 plays once.
	LoopCount int
	// Palette defaults to Plan 9's 256 colours.
	Palette color.Palette
}

// Encode palettises frames and writes them as an animated GIF to w.
func Encode(ctx context.Context, w io.Writer, frames []Frame, opts Options) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if opts.DefaultDelayMs <= 0 {
		opts.DefaultDelayMs = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if len(opts.Palette) == 0 {
		opts.Palette = palette.Plan9
	}

	var width, height int
	for i, f := range frames {
		if f.Image == nil {
			return fmt.Errorf("frame %d has no image", i)
		}
		if i == 0 {
			width, height = f.Image.Width, f.Image.Height
		}
		if f.Image.Width != width || f.Image.Height != height {
			return fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, f.Image.Width, f.Image.Height, width, height)
		}
	}

	paletted, err := palettise(ctx, frames, opts)
	if err != nil {
		return err
	}

	anim := &gif.GIF{
		LoopCount: opts.LoopCount,
		Config: image.Config{
			ColorModel: opts.Palette,
			Width:      width,
			Height:     height,
		},
	}

	switch opts.DelayMode {
	case DelayRepeat:
		counts := RepeatCounts(durations(frames, opts.DefaultDelayMs), opts.DefaultDelayMs)
		var expanded []int
		var refs []*image.Paletted
		for i, n := range counts {
			for j := 0; j < n; j++ {
				expanded = append(expanded, opts.DefaultDelayMs)
				refs = append(refs, paletted[i])
			}
		}
		appendFrames(anim, refs, Delays(expanded))
	default:
		appendFrames(anim, paletted, Delays(durations(frames, opts.DefaultDelayMs)))
	}

	logger.WithComponent("gifenc").Debug().
		Int("frames", len(frames)).
		Int("images", len(anim.Image)).
		Str("delay_mode", string(opts.DelayMode)).
		Msg("Writing GIF")

	if err := gif.EncodeAll(w, anim); err != nil {
		return fmt.Errorf("failed to write gif: %w", err)
	}
	return nil
}

// appendFrames adds images to anim, splitting delays that overflow the
// 16 bit field into consecutive copies.
func appendFrames(anim *gif.GIF, images []*image.Paletted, delays []int) {
	for i, img := range images {
		d := delays[i]
		for d > maxDelay {
			anim.Image = append(anim.Image, img)
			anim.Delay = append(anim.Delay, maxDelay)
			anim.Disposal = append(anim.Disposal, gif.DisposalNone)
			d -= maxDelay
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, d)
		anim.Disposal = append(anim.Disposal, gif.DisposalNone)
	}
}

func palettise(ctx context.Context, frames []Frame, opts Options) ([]*image.Paletted, error) {
	out := make([]*image.Paletted, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range frames {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := frames[i].Image.ToRGBA()
			dst := image.NewPaletted(src.Bounds(), opts.Palette)
			if opts.Dither {
				draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, image.Point{})
			} else {
				draw.Draw(dst, dst.Bounds(), src, image.Point{}, draw.Src)
			}
			out[i] = dst
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("palette conversion: %w", err)
	}
	return out, nil
}

func durations(frames []Frame, fallback int) []int {
	out := make([]int, len(frames))
	for i, f := range frames {
		out[i] = f.DurationMs
		if out[i] <= 0 {
			out[i] = fallback
		}
	}
	return out
}

// Delays converts millisecond durations into centisecond delays. Each delay
// is the difference of the rounded cumulative end and start times.
func Delays(durationsMs []int) []int {
	out := make([]int, len(durationsMs))
	var cum, prev int
	for i, d := range durationsMs {
		cum += d
		end := (cum + 5) / 10
		out[i] = end - prev
		prev = end
	}
	return out
}

// RepeatCounts returns how many times each duration must be repeated at the
// given interval. Every frame appears at least once.
func RepeatCounts(durationsMs []int, intervalMs int) []int {
	out := make([]int, len(durationsMs))
	for i, d := range durationsMs {
		out[i] = max(1, (d+intervalMs/2)/intervalMs)
	}
	return out
}
