package commands

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestProcessInvertRegion(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out, err := processImage(src, processOptions{Op: "invert", Rect: image.Rect(0, 0, 2, 4)})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{R: 245, G: 235, B: 225, A: 255}) {
		t.Errorf("inverted pixel = %v", got)
	}
	if got := out.RGBAAt(3, 3); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("pixel outside rect changed: %v", got)
	}
}

func TestProcessWholeImageDefault(t *testing.T) {
	src := solid(3, 2, color.RGBA{R: 255, A: 255})

	out, err := processImage(src, processOptions{Op: "grayscale"})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{0, 0}, {2, 1}} {
		c := out.RGBAAt(p.X, p.Y)
		if c.R != c.G || c.G != c.B {
			t.Errorf("pixel %v not gray: %v", p, c)
		}
	}
}

func TestProcessMosaicAndBlurKeepSize(t *testing.T) {
	src := solid(17, 9, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	for _, op := range []processOptions{
		{Op: "mosaic", BlockSize: 4},
		{Op: "blur", Iterations: 2},
	} {
		out, err := processImage(src, op)
		if err != nil {
			t.Fatalf("%s: %v", op.Op, err)
		}
		if out.Bounds().Size() != image.Pt(17, 9) {
			t.Errorf("%s size = %v", op.Op, out.Bounds().Size())
		}
		// A uniform picture is a fixed point of both operations
		if got := out.RGBAAt(8, 4); got != (color.RGBA{R: 1, G: 2, B: 3, A: 255}) {
			t.Errorf("%s pixel = %v", op.Op, got)
		}
	}
}

func TestProcessThumbnail(t *testing.T) {
	src := solid(400, 200, color.RGBA{G: 200, A: 255})

	out, err := processImage(src, processOptions{Op: "thumbnail", ThumbnailWidth: 100, ThumbnailHeight: 100})
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Size() != image.Pt(100, 50) {
		t.Errorf("thumbnail size = %v", out.Bounds().Size())
	}

	_, err = processImage(src, processOptions{Op: "thumbnail", Rect: image.Rect(500, 500, 600, 600), ThumbnailWidth: 10, ThumbnailHeight: 10})
	if !errors.Is(err, errEmptyResult) {
		t.Errorf("outside rect err = %v", err)
	}
}

func TestProcessUnknownOp(t *testing.T) {
	if _, err := processImage(solid(1, 1, color.RGBA{}), processOptions{Op: "sharpen"}); err == nil {
		t.Error("expected error")
	}
}

func TestFirstPositive(t *testing.T) {
	if got := firstPositive(0, -1, 7, 9); got != 7 {
		t.Errorf("firstPositive = %d", got)
	}
	if got := firstPositive(0); got != 0 {
		t.Errorf("firstPositive = %d", got)
	}
}
