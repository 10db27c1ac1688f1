package pixel

// DefaultSampleStep samples every 10th pixel along both axes.
const DefaultSampleStep = 10

// maxSampleDelta is the largest per-pixel channel sum difference (255*3).
const maxSampleDelta = 765

// SampledDifference returns a normalized difference in [0,1] between two
// buffers, comparing only pixels whose x and y are multiples of step. Each
// sampled pixel contributes |dB|+|dG|+|dR|. Buffers of different geometry
// are maximally different.
func SampledDifference(a, b *Buffer, step int) float64 {
	if a == nil || b == nil || a.Width != b.Width || a.Height != b.Height {
		return 1
	}
	if a.Width == 0 || a.Height == 0 {
		return 0
	}
	if step < 1 {
		step = DefaultSampleStep
	}
	var total, samples int64
	for y := 0; y < a.Height; y += step {
		ra := y * a.Stride
		rb := y * b.Stride
		for x := 0; x < a.Width; x += step {
			ia := ra + x*a.BytesPerPixel
			ib := rb + x*b.BytesPerPixel
			total += absDiff(a.Pix[ia], b.Pix[ib]) +
				absDiff(a.Pix[ia+1], b.Pix[ib+1]) +
				absDiff(a.Pix[ia+2], b.Pix[ib+2])
			samples++
		}
	}
	return float64(total) / float64(samples*maxSampleDelta)
}

func absDiff(a, b uint8) int64 {
	if a > b {
		return int64(a - b)
	}
	return int64(b - a)
}
