package sim

import (
	"fmt"
	"sort"
	"sync"
)

// Unit is a cooking unit. It holds several items at once, bounded by the sum of their sizes.
type Unit struct {
	mu       sync.Mutex
	index    int
	capacity float64
	occupied float64
	items    map[*Item]struct{}
	observe  OccupancyFunc
}

// NewUnit creates an empty unit. Panics on a non-positive capacity; validated configs never
// produce one.
func NewUnit(index int, capacity float64) *Unit {
	if !(capacity > 0) {
		panic(fmt.Sprintf("NewUnit: capacity must be > 0, got %g", capacity))
	}
	return &Unit{
		index:    index,
		capacity: capacity,
		items:    make(map[*Item]struct{}),
	}
}

func (u *Unit) Kind() HolderKind  { return KindUnit }
func (u *Unit) Index() int        { return u.index }
func (u *Unit) Capacity() float64 { return u.capacity }

// Occupied returns the summed size of the items currently cooking.
func (u *Unit) Occupied() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.occupied
}

// Len returns the number of items currently cooking.
func (u *Unit) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.items)
}

// Put places the item in the unit if it fits.
func (u *Unit) Put(it *Item) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !fits(u.occupied, it.Size, u.capacity) {
		return fmt.Errorf("unit %d (%g/%g) cannot take %s: %w", u.index, u.occupied, u.capacity, it.ID(), ErrCapacityExceeded)
	}
	u.items[it] = struct{}{}
	u.occupied += it.Size
	u.notifyLocked()
	return nil
}

// Remove takes the item out of the unit and frees its capacity.
// Returns false if the item was not in this unit.
func (u *Unit) Remove(it *Item) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.items[it]; !ok {
		return false
	}
	delete(u.items, it)
	u.occupied -= it.Size
	if len(u.items) == 0 {
		u.occupied = 0
	}
	u.notifyLocked()
	return true
}

// Contains reports whether the item is currently cooking in this unit.
func (u *Unit) Contains(it *Item) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.items[it]
	return ok
}

// Status returns a snapshot of the unit. Item ids are sorted for stable output.
func (u *Unit) Status() HolderStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	ids := make([]string, 0, len(u.items))
	for it := range u.items {
		ids = append(ids, it.ID())
	}
	sort.Strings(ids)
	return HolderStatus{Kind: KindUnit, Index: u.index, Capacity: u.capacity, Occupied: u.occupied, Items: ids}
}

// SetObserver installs fn to be told about every occupancy change.
func (u *Unit) SetObserver(fn OccupancyFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.observe = fn
	u.notifyLocked()
}

func (u *Unit) notifyLocked() {
	if u.observe != nil {
		u.observe(KindUnit, u.index, u.occupied, len(u.items))
	}
}
