package pixel

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Thumbnail resamples the r part of src with Catmull-Rom into a new buffer
// scaled uniformly by min(maxWidth/w, maxHeight/h). Both output dimensions
// stay within the bounding box. Degenerate input yields nil.
func Thumbnail(src *Buffer, r image.Rectangle, maxWidth, maxHeight int) *Buffer {
	r, ok := src.clip(r)
	if !ok || maxWidth <= 0 || maxHeight <= 0 {
		return nil
	}
	w, h := ThumbnailSize(r.Dx(), r.Dy(), maxWidth, maxHeight)

	srcImg := src.ToRGBA()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), srcImg, r, draw.Src, nil)

	out := NewWithFormat(w, h, src.BytesPerPixel)
	_ = out.FillFromRGBA(dst)
	return out
}

// ThumbnailSize returns the aspect-preserving size of a w x h source fitted
// into maxWidth x maxHeight.
func ThumbnailSize(w, h, maxWidth, maxHeight int) (int, int) {
	scale := math.Min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	tw := clampInt(int(math.Round(float64(w)*scale)), 1, maxWidth)
	th := clampInt(int(math.Round(float64(h)*scale)), 1, maxHeight)
	return tw, th
}

// ScaleRGBA resizes img by factor with bilinear filtering. A factor of 1
// (or anything not positive) returns img unchanged.
func ScaleRGBA(img *image.RGBA, factor float64) *image.RGBA {
	if factor <= 0 || factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(int(math.Round(float64(b.Dx())*factor)), 1)
	h := max(int(math.Round(float64(b.Dy())*factor)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ScaledSize returns the dimensions ScaleRGBA produces for a w x h source.
func ScaledSize(w, h int, factor float64) (int, int) {
	if factor <= 0 || factor == 1 {
		return w, h
	}
	return max(int(math.Round(float64(w)*factor)), 1), max(int(math.Round(float64(h)*factor)), 1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
