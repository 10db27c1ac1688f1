package pixel

import "image"

// Grayscale writes the luminosity 0.21R + 0.72G + 0.07B (truncated) into
// all three colour channels of every pixel in r.
func Grayscale(b *Buffer, r image.Rectangle) {
	r, ok := b.clip(r)
	if !ok {
		return
	}
	bpp := b.BytesPerPixel
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := b.Offset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			// Integer weights keep white at exactly 255
			lum := byte((7*int(b.Pix[i]) + 72*int(b.Pix[i+1]) + 21*int(b.Pix[i+2])) / 100)
			b.Pix[i] = lum
			b.Pix[i+1] = lum
			b.Pix[i+2] = lum
			i += bpp
		}
	}
}

// Invert maps every colour channel in r to 255 - value. Alpha is untouched.
func Invert(b *Buffer, r image.Rectangle) {
	r, ok := b.clip(r)
	if !ok {
		return
	}
	bpp := b.BytesPerPixel
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := b.Offset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			b.Pix[i] = 255 - b.Pix[i]
			b.Pix[i+1] = 255 - b.Pix[i+1]
			b.Pix[i+2] = 255 - b.Pix[i+2]
			i += bpp
		}
	}
}
