package objectstore

import (
	"sync"
	"sync/atomic"
)

// BufferPool recycles BlockSize-sized byte slices, the same sync.Pool-
// backed idiom as the teacher's crypto buffer pool, sized for this
// module's single block size rather than several tiers.
type BufferPool struct {
	pool *sync.Pool
	hits   atomic.Int64
	misses atomic.Int64
}

// NewBufferPool constructs a pool of BlockSize buffers.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	bp.pool = &sync.Pool{
		New: func() any {
			bp.misses.Add(1)
			return make([]byte, BlockSize)
		},
	}
	return bp
}

// Get returns a zeroed BlockSize buffer.
func (p *BufferPool) Get() []byte {
	before := p.misses.Load()
	buf := p.pool.Get().([]byte)
	if p.misses.Load() == before {
		p.hits.Add(1)
	}
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Put returns buf to the pool. Callers must not use buf afterward.
func (p *BufferPool) Put(buf []byte) {
	if len(buf) != BlockSize {
		return
	}
	p.pool.Put(buf) //nolint:staticcheck // sync.Pool store of a slice header is intentional
}

// HitRate reports the fraction of Get calls satisfied without allocating.
func (p *BufferPool) HitRate() float64 {
	hits := p.hits.Load()
	misses := p.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
