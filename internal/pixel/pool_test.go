package pixel

import "testing"

func TestBufferPoolSizes(t *testing.T) {
	p := NewPool()
	b := p.Get(8, 4)
	if b.Width != 8 || b.Height != 4 || b.BytesPerPixel != 3 {
		t.Fatalf("unexpected buffer %dx%d bpp=%d", b.Width, b.Height, b.BytesPerPixel)
	}
	p.Put(b)

	other := p.Get(2, 2)
	if other.Width != 2 || other.Height != 2 {
		t.Fatalf("resize not honoured: %dx%d", other.Width, other.Height)
	}
	// Putting a stale size must not poison the pool
	p.Put(New(8, 4))
	if got := p.Get(2, 2); got.Width != 2 {
		t.Fatalf("pool returned stale size %dx%d", got.Width, got.Height)
	}
}

func TestCloneFrom(t *testing.T) {
	p := NewPool()
	src := New(3, 3)
	src.SetBGR(1, 1, 5, 6, 7)
	c := CloneFrom(p, src)
	if b, g, r := c.BGR(1, 1); b != 5 || g != 6 || r != 7 {
		t.Fatalf("clone content %d,%d,%d", b, g, r)
	}
	src.SetBGR(1, 1, 0, 0, 0)
	if b, _, _ := c.BGR(1, 1); b != 5 {
		t.Fatal("clone not independent")
	}
}
