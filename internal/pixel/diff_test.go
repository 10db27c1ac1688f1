package pixel

import "testing"

func TestSampledDifference(t *testing.T) {
	black := New(100, 100)
	white := New(100, 100)
	white.Fill(255, 255, 255)

	if d := SampledDifference(black, black.Clone(), DefaultSampleStep); d != 0 {
		t.Fatalf("identical frames: got %v", d)
	}
	if d := SampledDifference(black, white, DefaultSampleStep); d != 1 {
		t.Fatalf("black vs white: got %v", d)
	}
}

func TestSampledDifferenceOnlySamplesGrid(t *testing.T) {
	a := New(100, 100)
	b := a.Clone()
	// (5,5) is off the 10 pixel grid
	b.SetBGR(5, 5, 255, 255, 255)
	if d := SampledDifference(a, b, DefaultSampleStep); d != 0 {
		t.Fatalf("off-grid change should be invisible, got %v", d)
	}
	// (10,20) is on it: 100 samples, one maxed out
	b.SetBGR(10, 20, 255, 255, 255)
	if d := SampledDifference(a, b, DefaultSampleStep); d != 0.01 {
		t.Fatalf("expected 0.01, got %v", d)
	}
}

func TestSampledDifferenceStrideIndependent(t *testing.T) {
	a := paddedBuffer(20, 20, 3, 9)
	b := New(20, 20)
	a.SetBGR(10, 10, 30, 0, 0)
	b.SetBGR(10, 10, 30, 0, 0)
	if d := SampledDifference(a, b, DefaultSampleStep); d != 0 {
		t.Fatalf("padding leaked into comparison: %v", d)
	}
}

func TestSampledDifferenceGeometryMismatch(t *testing.T) {
	if d := SampledDifference(New(10, 10), New(10, 11), DefaultSampleStep); d != 1 {
		t.Fatalf("got %v", d)
	}
	if d := SampledDifference(nil, New(1, 1), DefaultSampleStep); d != 1 {
		t.Fatalf("got %v", d)
	}
}
