package pixel

import "sync"

// Pool hands out buffers and takes them back once their owner is done.
// A recording session runs at one resolution, so implementations only need
// to recycle buffers of the most recent size.
type Pool interface {
	Get(width, height int) *Buffer
	Put(b *Buffer)
}

// BufferPool is a sync.Pool backed Pool for 3 byte per pixel buffers.
// Buffers returned by Get are not cleared.
type BufferPool struct {
	mu   sync.Mutex
	pool sync.Pool
	w, h int
}

// NewPool returns an empty BufferPool.
func NewPool() *BufferPool {
	return &BufferPool{}
}

func (p *BufferPool) Get(width, height int) *Buffer {
	p.mu.Lock()
	if p.w == width && p.h == height {
		p.mu.Unlock()
		if v := p.pool.Get(); v != nil {
			return v.(*Buffer)
		}
		return New(width, height)
	}
	// Resolution changed, drop everything pooled for the old size
	p.w = width
	p.h = height
	p.pool = sync.Pool{}
	p.mu.Unlock()
	return New(width, height)
}

func (p *BufferPool) Put(b *Buffer) {
	if b == nil || b.Pix == nil || b.BytesPerPixel != DefaultBytesPerPixel {
		return
	}
	p.mu.Lock()
	match := p.w == b.Width && p.h == b.Height
	p.mu.Unlock()
	if match {
		p.pool.Put(b)
	}
}

// CloneFrom takes a buffer from p and copies src into it.
func CloneFrom(p Pool, src *Buffer) *Buffer {
	dst := p.Get(src.Width, src.Height)
	if err := dst.CopyFrom(src); err != nil {
		p.Put(dst)
		return src.Clone()
	}
	return dst
}
