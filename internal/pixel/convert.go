package pixel

import (
	"image"
	"image/draw"
)

// FromRGBA converts img into a new 3 byte per pixel B,G,R buffer.
func FromRGBA(img *image.RGBA) *Buffer {
	r := img.Bounds()
	b := New(r.Dx(), r.Dy())
	_ = b.FillFromRGBA(img)
	return b
}

// FromImage converts any image into a new buffer with the given bytes per
// pixel, going through RGBA when needed.
func FromImage(img image.Image, bytesPerPixel int) *Buffer {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		bounds := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	r := rgba.Bounds()
	b := NewWithFormat(r.Dx(), r.Dy(), bytesPerPixel)
	_ = b.FillFromRGBA(rgba)
	return b
}

// FillFromRGBA overwrites b with the pixels of img, swapping R and B.
// The alpha channel is unpremultiplied into b when b carries one.
func (b *Buffer) FillFromRGBA(img *image.RGBA) error {
	r := img.Bounds()
	if r.Dx() != b.Width || r.Dy() != b.Height {
		return ErrInvalidFormat
	}
	bpp := b.BytesPerPixel
	for y := 0; y < b.Height; y++ {
		si := img.PixOffset(r.Min.X, r.Min.Y+y)
		di := y * b.Stride
		for x := 0; x < b.Width; x++ {
			red, green, blue, alpha := img.Pix[si], img.Pix[si+1], img.Pix[si+2], img.Pix[si+3]
			if alpha != 0xff && alpha != 0 && bpp >= 4 {
				red = unpremultiply(red, alpha)
				green = unpremultiply(green, alpha)
				blue = unpremultiply(blue, alpha)
			}
			b.Pix[di] = blue
			b.Pix[di+1] = green
			b.Pix[di+2] = red
			if bpp >= 4 {
				b.Pix[di+3] = alpha
			}
			si += 4
			di += bpp
		}
	}
	return nil
}

// ToRGBA converts b into a new premultiplied RGBA image. Buffers without
// alpha are opaque.
func (b *Buffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	bpp := b.BytesPerPixel
	for y := 0; y < b.Height; y++ {
		si := y * b.Stride
		di := y * img.Stride
		for x := 0; x < b.Width; x++ {
			alpha := uint8(0xff)
			if bpp >= 4 {
				alpha = b.Pix[si+3]
			}
			red, green, blue := b.Pix[si+2], b.Pix[si+1], b.Pix[si]
			if alpha != 0xff {
				red = premultiply(red, alpha)
				green = premultiply(green, alpha)
				blue = premultiply(blue, alpha)
			}
			img.Pix[di] = red
			img.Pix[di+1] = green
			img.Pix[di+2] = blue
			img.Pix[di+3] = alpha
			si += bpp
			di += 4
		}
	}
	return img
}

func premultiply(c, a uint8) uint8 {
	return uint8((uint32(c)*uint32(a) + 127) / 255)
}

func unpremultiply(c, a uint8) uint8 {
	v := (uint32(c)*255 + uint32(a)/2) / uint32(a)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
