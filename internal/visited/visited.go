// Package visited provides recyclable visited-node sets for graph
// traversal. Sets use a generation-counter scheme so that clearing is
// O(1) amortised: each Clear bumps the epoch and only a stamp equal to
// the current epoch reads as visited.
package visited

import (
	"sync"

	"github.com/hupe1980/wowgo/model"
)

// Set tracks visited internal IDs for a single traversal.
type Set struct {
	stamps []uint16
	epoch  uint16
}

// NewSet creates a visited set sized for n internal IDs.
func NewSet(n int) *Set {
	return &Set{stamps: make([]uint16, n)}
}

// Clear invalidates all marks. When the epoch counter wraps, the stamp
// array is zeroed once and the epoch restarts at 1.
func (s *Set) Clear() {
	s.epoch++
	if s.epoch == 0 {
		clear(s.stamps)
		s.epoch = 1
	}
}

// Visit marks id as visited in the current epoch.
func (s *Set) Visit(id model.InternalID) {
	s.stamps[id] = s.epoch
}

// Visited reports whether id was visited in the current epoch.
func (s *Set) Visited(id model.InternalID) bool {
	return s.stamps[id] == s.epoch
}

// Pool is a free-list of visited sets shared by concurrent operations.
// Get returns a recycled set or lazily allocates one; Return pushes it
// back for reuse.
type Pool struct {
	mu   sync.Mutex
	free []*Set
	n    int
}

// NewPool creates a pool handing out sets sized for n internal IDs.
func NewPool(n int) *Pool {
	return &Pool{n: n}
}

// Get returns a visited set. The caller must Clear it before use.
func (p *Pool) Get() *Set {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return NewSet(p.n)
	}
	s := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return s
}

// Return pushes a set back into the pool.
func (p *Pool) Return(s *Set) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, s)
}
