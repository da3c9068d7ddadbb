package buffer

import "sync"

// Pool provides sync.Pool-based Block reuse to reduce GC pressure in
// real-time processing loops.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool ready for use.
func NewPool() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Block{}
			},
		},
	}
}

// Get returns a zeroed Block with the requested length. Callers must return
// it via Put when done.
func (p *Pool) Get(length int) *Block {
	b := p.pool.Get().(*Block)
	b.Resize(length)
	b.Zero()

	return b
}

// Put returns a Block to the pool for reuse. The caller must not use the
// block after calling Put.
func (p *Pool) Put(b *Block) {
	if b == nil {
		return
	}

	p.pool.Put(b)
}
