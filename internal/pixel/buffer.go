// Package pixel operates directly on stride-aware B,G,R[,A] byte buffers.
//
// A Buffer never assumes rows are tightly packed: every pixel address is
// computed as y*Stride + x*BytesPerPixel, and the bytes between
// Width*BytesPerPixel and Stride on each row are padding that no operation
// reads or writes.
package pixel

import (
	"errors"
	"fmt"
	"image"
)

// DefaultBytesPerPixel is the recording format: B,G,R with no alpha.
const DefaultBytesPerPixel = 3

// ErrInvalidFormat is returned for buffers whose geometry does not describe
// their backing slice.
var ErrInvalidFormat = errors.New("pixel: invalid buffer format")

// Buffer is a caller-owned pixel buffer with channel order B,G,R[,A].
type Buffer struct {
	Pix           []byte
	Width         int
	Height        int
	Stride        int
	BytesPerPixel int
}

// RowStride returns the 4-byte aligned scanline length used for newly
// allocated buffers, matching DIB row alignment.
func RowStride(width, bytesPerPixel int) int {
	return (width*bytesPerPixel + 3) &^ 3
}

// New allocates a zeroed 3 byte per pixel buffer.
func New(width, height int) *Buffer {
	return NewWithFormat(width, height, DefaultBytesPerPixel)
}

// NewWithFormat allocates a zeroed buffer with the given bytes per pixel (3 or 4).
func NewWithFormat(width, height, bytesPerPixel int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := RowStride(width, bytesPerPixel)
	return &Buffer{
		Pix:           make([]byte, stride*height),
		Width:         width,
		Height:        height,
		Stride:        stride,
		BytesPerPixel: bytesPerPixel,
	}
}

// Validate checks that the geometry fits inside Pix.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidFormat)
	}
	if b.BytesPerPixel < 3 {
		return fmt.Errorf("%w: %d bytes per pixel", ErrInvalidFormat, b.BytesPerPixel)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFormat, b.Width, b.Height)
	}
	if b.Stride < b.Width*b.BytesPerPixel {
		return fmt.Errorf("%w: stride %d shorter than row %d", ErrInvalidFormat, b.Stride, b.Width*b.BytesPerPixel)
	}
	if b.Height > 0 && len(b.Pix) < (b.Height-1)*b.Stride+b.Width*b.BytesPerPixel {
		return fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrInvalidFormat, len(b.Pix), b.Width, b.Height, b.Stride)
	}
	return nil
}

// Bounds returns the buffer rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// Offset returns the index of the first byte (blue) of pixel (x, y).
func (b *Buffer) Offset(x, y int) int {
	return y*b.Stride + x*b.BytesPerPixel
}

// HasAlpha reports whether a fourth channel is present.
func (b *Buffer) HasAlpha() bool {
	return b.BytesPerPixel >= 4
}

// SizeBytes returns the length of the backing slice.
func (b *Buffer) SizeBytes() int {
	if b == nil {
		return 0
	}
	return len(b.Pix)
}

// BGR returns the colour channels of pixel (x, y).
func (b *Buffer) BGR(x, y int) (blue, green, red uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// SetBGR writes the colour channels of pixel (x, y), leaving alpha alone.
func (b *Buffer) SetBGR(x, y int, blue, green, red uint8) {
	i := b.Offset(x, y)
	b.Pix[i] = blue
	b.Pix[i+1] = green
	b.Pix[i+2] = red
}

// Fill sets every pixel to one colour.
func (b *Buffer) Fill(blue, green, red uint8) {
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			b.SetBGR(x, y, blue, green, red)
		}
	}
}

// SameGeometry reports whether o has identical dimensions and format.
func (b *Buffer) SameGeometry(o *Buffer) bool {
	return o != nil && b.Width == o.Width && b.Height == o.Height && b.BytesPerPixel == o.BytesPerPixel
}

// Clone returns an independent copy with the same stride.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		Pix:           make([]byte, len(b.Pix)),
		Width:         b.Width,
		Height:        b.Height,
		Stride:        b.Stride,
		BytesPerPixel: b.BytesPerPixel,
	}
	copy(c.Pix, b.Pix)
	return c
}

// CopyFrom copies the pixel rows of src into b. Strides may differ.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if !b.SameGeometry(src) {
		return fmt.Errorf("%w: copy %dx%d into %dx%d", ErrInvalidFormat, src.Width, src.Height, b.Width, b.Height)
	}
	row := b.Width * b.BytesPerPixel
	for y := 0; y < b.Height; y++ {
		copy(b.Pix[y*b.Stride:y*b.Stride+row], src.Pix[y*src.Stride:y*src.Stride+row])
	}
	return nil
}

// Rect builds a rectangle from an origin and a size.
func Rect(x, y, width, height int) image.Rectangle {
	return image.Rect(x, y, x+width, y+height)
}

// clip intersects r with the buffer bounds. Rectangles with zero or
// negative extent never survive the intersection.
func (b *Buffer) clip(r image.Rectangle) (image.Rectangle, bool) {
	if b == nil || b.Validate() != nil {
		return image.Rectangle{}, false
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}, false
	}
	r = r.Intersect(b.Bounds())
	return r, !r.Empty()
}
