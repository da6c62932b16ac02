package cache

import "sync/atomic"

// FixedSizeBufferPool lends scratch buffers of bufSize bytes, all carved from one arena.
// Lanes share a pool, so a lane that finds it empty allocates instead of queueing.
type FixedSizeBufferPool struct {
	arena   []byte
	bufSize int

	free chan uint16

	hits   atomic.Int64
	misses atomic.Int64
}

func NewFixedSizeBufferPool(n int, bufSize int) *FixedSizeBufferPool {
	p := &FixedSizeBufferPool{
		arena:   make([]byte, n*bufSize),
		bufSize: bufSize,
		free:    make(chan uint16, n),
	}

	for id := range n {
		p.free <- uint16(id)
	}

	return p
}

func (p *FixedSizeBufferPool) BufSize() int {
	return p.bufSize
}

func (p *FixedSizeBufferPool) slot(id uint16) []byte {
	start := int(id) * p.bufSize
	end := start + p.bufSize
	return p.arena[start:end:end]
}

// Get waits for a free buffer.
func (p *FixedSizeBufferPool) Get() ([]byte, uint16) {
	id := <-p.free
	p.hits.Add(1)
	return p.slot(id), id
}

// TryGet lends a buffer of at least size bytes when one is free right now.
func (p *FixedSizeBufferPool) TryGet(size int) ([]byte, uint16, bool) {
	if size > p.bufSize {
		p.misses.Add(1)
		return nil, 0, false
	}

	select {
	case id := <-p.free:
		p.hits.Add(1)
		return p.slot(id)[:size], id, true
	default:
		p.misses.Add(1)
		return nil, 0, false
	}
}

func (p *FixedSizeBufferPool) Return(id uint16) {
	p.free <- id
}

// Usage reports how many requests were served from the arena and how many were not.
func (p *FixedSizeBufferPool) Usage() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
