package golisp

// cell is the constraint every pool-managed pointer type must satisfy: a
// way to reach its own GC metadata. cellHeader's embedding gives every
// Value variant (and *Frame) this method for free.
type cell interface {
	header() *cellHeader
}

// pool is a paged, per-variant allocator: cells are grouped into pages of a
// fixed size, each carrying allocated/marked bits via its embedded
// cellHeader. A page, once created, is never resized or moved, so pointers
// handed out by allocate remain stable for the pool's lifetime. Modeled
// after the teacher's own use of a generic helper type (treePrinter[T]) for
// a single concern reused across variants.
type pool[T cell] struct {
	name      string
	pageSize  int
	cellBytes int
	newCell   func() T

	pages [][]T
	free  []T
}

func newPool[T cell](name string, pageSize, cellBytes int, newCell func() T) *pool[T] {
	return &pool[T]{
		name:      name,
		pageSize:  pageSize,
		cellBytes: cellBytes,
		newCell:   newCell,
	}
}

func (p *pool[T]) extend() {
	page := make([]T, p.pageSize)
	for i := range page {
		page[i] = p.newCell()
	}
	p.pages = append(p.pages, page)
	p.free = append(p.free, page...)
}

// allocate hands out a free cell, extending the pool by one page first if
// none is free. Callers that need watermark/ceiling enforcement go through
// Heap's allocateFrom helper instead of calling this directly.
func (p *pool[T]) allocate() T {
	if len(p.free) == 0 {
		p.extend()
	}
	c := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	h := c.header()
	h.allocated = true
	h.marked = false
	return c
}

// sweep returns every unmarked-but-allocated cell to the free list, clears
// every mark, and reports how many cells were reclaimed.
func (p *pool[T]) sweep() int {
	reclaimed := 0
	for _, page := range p.pages {
		for _, c := range page {
			h := c.header()
			if h.allocated && !h.marked {
				h.allocated = false
				p.free = append(p.free, c)
				reclaimed++
			}
			h.marked = false
		}
	}
	return reclaimed
}

func (p *pool[T]) liveCount() int {
	n := 0
	for _, page := range p.pages {
		for _, c := range page {
			if c.header().allocated {
				n++
			}
		}
	}
	return n
}

func (p *pool[T]) bytesAllocated() int {
	return len(p.pages) * p.pageSize * p.cellBytes
}

func (p *pool[T]) hasFree() bool {
	return len(p.free) > 0
}
