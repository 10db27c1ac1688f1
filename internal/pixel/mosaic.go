package pixel

import "image"

// DefaultMosaicBlockSize is the edge length of a mosaic block.
const DefaultMosaicBlockSize = 16

// Mosaic pixelates r in place. The rectangle is split into blockSize squares
// starting at its top-left corner; blocks on the right and bottom edges are
// clipped and averaged over the pixels they actually cover. Every pixel of a
// block receives the block's mean B, G and R. Alpha is untouched.
func Mosaic(b *Buffer, r image.Rectangle, blockSize int) {
	r, ok := b.clip(r)
	if !ok {
		return
	}
	if blockSize <= 0 {
		blockSize = DefaultMosaicBlockSize
	}
	bpp := b.BytesPerPixel

	for by := r.Min.Y; by < r.Max.Y; by += blockSize {
		ey := min(by+blockSize, r.Max.Y)
		for bx := r.Min.X; bx < r.Max.X; bx += blockSize {
			ex := min(bx+blockSize, r.Max.X)

			var sumB, sumG, sumR, n int
			for y := by; y < ey; y++ {
				i := b.Offset(bx, y)
				for x := bx; x < ex; x++ {
					sumB += int(b.Pix[i])
					sumG += int(b.Pix[i+1])
					sumR += int(b.Pix[i+2])
					n++
					i += bpp
				}
			}
			mb, mg, mr := byte(sumB/n), byte(sumG/n), byte(sumR/n)

			for y := by; y < ey; y++ {
				i := b.Offset(bx, y)
				for x := bx; x < ex; x++ {
					b.Pix[i] = mb
					b.Pix[i+1] = mg
					b.Pix[i+2] = mr
					i += bpp
				}
			}
		}
	}
}
