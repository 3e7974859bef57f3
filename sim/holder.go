package sim

import "fmt"

// HolderKind distinguishes the two capacity-constrained containers in the kitchen.
type HolderKind string

const (
	// KindUnit is a cooking unit: items stay for their cook time, then leave on their own.
	KindUnit HolderKind = "unit"
	// KindBuffer is an overflow store: items wait, untimed, in FIFO order.
	KindBuffer HolderKind = "buffer"
)

// Holder is the admission-check contract shared by units and buffers.
// Put must leave the holder unchanged and return ErrCapacityExceeded when
// Occupied()+it.Size > Capacity(). Implementations are safe for concurrent use.
type Holder interface {
	Kind() HolderKind
	Index() int
	Capacity() float64
	Occupied() float64
	Len() int
	Put(it *Item) error
}

// OccupancyFunc observes a holder's occupancy after every change. It is called while the
// holder's lock is held, so it must not call back into the holder.
type OccupancyFunc func(kind HolderKind, index int, occupied float64, items int)

// HolderStatus is a point-in-time view of a holder.
type HolderStatus struct {
	Kind     HolderKind `json:"kind"`
	Index    int        `json:"index"`
	Capacity float64    `json:"capacity"`
	Occupied float64    `json:"occupied"`
	Items    []string   `json:"items"`
}

func (s HolderStatus) String() string {
	return fmt.Sprintf("%s %d: %g/%g (%d items)", s.Kind, s.Index, s.Occupied, s.Capacity, len(s.Items))
}

// fits reports whether an item of the given size fits next to occupied in capacity.
func fits(occupied, size, capacity float64) bool {
	return occupied+size <= capacity
}
