package pixel

import "image"

// BlurRadius is the box kernel radius (5x5 window).
const BlurRadius = 2

// BoxBlur replaces every pixel of r with the mean B, G and R of the pixels in
// its 5x5 neighbourhood that lie inside r. Neighbours outside r are left out
// of both the sum and the count. Each iteration blurs the output of the one
// before. Alpha is untouched.
func BoxBlur(b *Buffer, r image.Rectangle, iterations int) {
	r, ok := b.clip(r)
	if !ok {
		return
	}
	if iterations < 1 {
		iterations = 1
	}
	w, h := r.Dx(), r.Dy()
	bpp := b.BytesPerPixel
	// Snapshot of the region's colour channels, tightly packed
	src := make([]byte, w*h*3)

	for it := 0; it < iterations; it++ {
		for y := 0; y < h; y++ {
			i := b.Offset(r.Min.X, r.Min.Y+y)
			j := y * w * 3
			for x := 0; x < w; x++ {
				src[j] = b.Pix[i]
				src[j+1] = b.Pix[i+1]
				src[j+2] = b.Pix[i+2]
				i += bpp
				j += 3
			}
		}

		for y := 0; y < h; y++ {
			y0, y1 := max(y-BlurRadius, 0), min(y+BlurRadius, h-1)
			i := b.Offset(r.Min.X, r.Min.Y+y)
			for x := 0; x < w; x++ {
				x0, x1 := max(x-BlurRadius, 0), min(x+BlurRadius, w-1)
				var sumB, sumG, sumR, n int
				for ny := y0; ny <= y1; ny++ {
					j := (ny*w + x0) * 3
					for nx := x0; nx <= x1; nx++ {
						sumB += int(src[j])
						sumG += int(src[j+1])
						sumR += int(src[j+2])
						n++
						j += 3
					}
				}
				b.Pix[i] = byte(sumB / n)
				b.Pix[i+1] = byte(sumG / n)
				b.Pix[i+2] = byte(sumR / n)
				i += bpp
			}
		}
	}
}
