// Package slotpool holds the set of save slots that still have an
// unfinished run.
//
// The pool only ever shrinks after it is created. It is shared between
// the rotation scheduler, which picks from it, and the completion
// listener, which removes from it, so every operation takes the pool lock.
package slotpool

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
)

// ErrEmptyPool is returned when picking from a pool with no slots left.
var ErrEmptyPool = errors.New("slot pool is empty")

// Pool is a set of opaque slot identifiers.
type Pool struct {
	mu    sync.Mutex
	slots []string
	rng   *rand.Rand
}

// New creates a Pool from ids. Duplicate ids are collapsed, keeping the
// first occurrence.
func New(ids []string) *Pool {
	p := &Pool{
		slots: make([]string, 0, len(ids)),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec
	}
	for _, id := range ids {
		if !slices.Contains(p.slots, id) {
			p.slots = append(p.slots, id)
		}
	}
	return p
}

// Remove deletes id from the pool. Removing an id that is not present is
// a no-op. It reports whether id was removed.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := slices.Index(p.slots, id)
	if idx < 0 {
		return false
	}
	p.slots = slices.Delete(p.slots, idx, idx+1)
	slog.Debug("slot removed from pool", "slot", id, "remaining", len(p.slots))
	return true
}

// PickRandomExcluding returns a uniformly random slot. When two or more
// slots remain the result is never excluded; with a single slot left that
// slot is returned regardless. An empty excluded matches nothing.
func (p *Pool) PickRandomExcluding(excluded string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch len(p.slots) {
	case 0:
		return "", ErrEmptyPool
	case 1:
		return p.slots[0], nil
	}

	idx := slices.Index(p.slots, excluded)
	if idx < 0 {
		return p.slots[p.rng.IntN(len(p.slots))], nil
	}

	// Draw from the n-1 candidates and skip over the excluded position.
	n := p.rng.IntN(len(p.slots) - 1)
	if n >= idx {
		n++
	}
	return p.slots[n], nil
}

// Contains reports whether id is still in the pool.
func (p *Pool) Contains(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.slots, id)
}

// Size returns the number of remaining slots.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Snapshot returns a copy of the remaining slots for logging.
func (p *Pool) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.slots)
}
