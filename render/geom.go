// Copyright 2025 The skyrender authors. All rights reserved.

package render

// vertexStride is the size of one vertex in bytes:
// three position floats followed by four color floats.
const vertexStride = 28

// geomArena hands out byte ranges of a fixed-capacity
// geometry buffer. It is a monotonic cursor; the whole
// arena is reclaimed at once by reset, at frame start.
type geomArena struct {
	size int64
	off  int64
}

// alloc reserves n bytes and returns the offset of the
// reservation. It fails when less than n bytes remain;
// the cursor is not moved in that case, so prior
// reservations stay untouched.
func (g *geomArena) alloc(n int64) (int64, bool) {
	if n < 0 || g.off > g.size-n {
		return 0, false
	}
	off := g.off
	g.off += n
	return off, true
}

// reset reclaims the whole arena.
func (g *geomArena) reset() { g.off = 0 }

// rem returns the number of unreserved bytes.
func (g *geomArena) rem() int64 { return g.size - g.off }
