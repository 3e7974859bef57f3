package sim

import (
	"fmt"
	"math/rand"
	"sync"
)

// Registry owns the set of production lines. Lines are appended, never removed, and the
// scheduler reads them through Snapshot while new lines are being added.
type Registry struct {
	mu       sync.RWMutex
	lines    []*Line
	ordering OrderingMode
	wake     func()
}

// NewRegistry creates an empty registry. Every line it creates uses ordering for its
// outbound side and calls wake after producing an item.
func NewRegistry(ordering OrderingMode, wake func()) *Registry {
	return &Registry{ordering: ordering, wake: wake}
}

// Add creates and registers a new, not yet started, line. Its id is the number of lines
// registered before it.
func (r *Registry) Add(policy ProductionPolicy, rng *rand.Rand) *Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := NewLine(len(r.lines), policy, rng, r.ordering)
	l.wake = r.wake
	r.lines = append(r.lines, l)
	return l
}

// Get returns the line with the given id.
func (r *Registry) Get(id int) (*Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || id >= len(r.lines) {
		return nil, fmt.Errorf("line %d: %w", id, ErrLineNotFound)
	}
	return r.lines[id], nil
}

// Snapshot returns the registered lines in id order. Lines added afterwards are not included.
func (r *Registry) Snapshot() []*Line {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Line, len(r.lines))
	copy(out, r.lines)
	return out
}

// Len returns the number of registered lines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lines)
}
