// File: buffer/pool.go
// Author: momentics <momentics@gmail.com>
//
// Cursor pool, one size class per pool. Connections draw a cursor at
// handoff and return it at teardown, so region allocations amortize
// across connection lifetimes.

package buffer

import "sync"

// Pool recycles cursors of a single capacity.
type Pool struct {
	capacity int
	p        sync.Pool
}

// NewPool creates a pool handing out cursors of the given capacity.
func NewPool(capacity int) *Pool {
	pl := &Pool{capacity: capacity}
	pl.p.New = func() any {
		return NewCursor(capacity)
	}
	return pl
}

// Get returns an empty cursor.
func (p *Pool) Get() *Cursor {
	c := p.p.Get().(*Cursor)
	c.Reset()
	return c
}

// Put returns a cursor to the pool. The caller must not retain it.
func (p *Pool) Put(c *Cursor) {
	if c == nil || c.Cap() != p.capacity {
		return
	}
	p.p.Put(c)
}

// Capacity returns the size class of this pool.
func (p *Pool) Capacity() int {
	return p.capacity
}
