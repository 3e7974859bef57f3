package sim

import (
	"fmt"
	"sync"
)

// Buffer is an overflow store used when every unit is full. Items wait in FIFO order and are
// not processed while buffered.
type Buffer struct {
	mu       sync.Mutex
	index    int
	capacity float64
	queue    ItemQueue
	observe  OccupancyFunc
}

// NewBuffer creates an empty buffer. Panics on a non-positive capacity.
func NewBuffer(index int, capacity float64) *Buffer {
	if !(capacity > 0) {
		panic(fmt.Sprintf("NewBuffer: capacity must be > 0, got %g", capacity))
	}
	return &Buffer{index: index, capacity: capacity}
}

func (b *Buffer) Kind() HolderKind  { return KindBuffer }
func (b *Buffer) Index() int        { return b.index }
func (b *Buffer) Capacity() float64 { return b.capacity }

// Occupied returns the summed size of the buffered items.
func (b *Buffer) Occupied() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Size()
}

// Len returns the number of buffered items.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Put appends the item to the buffer if it fits.
func (b *Buffer) Put(it *Item) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !fits(b.queue.Size(), it.Size, b.capacity) {
		return fmt.Errorf("buffer %d (%g/%g) cannot take %s: %w", b.index, b.queue.Size(), b.capacity, it.ID(), ErrCapacityExceeded)
	}
	b.queue.Enqueue(it)
	b.notifyLocked()
	return nil
}

// Peek returns the oldest buffered item without removing it, or nil.
func (b *Buffer) Peek() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Peek()
}

// Take removes and returns the oldest buffered item, or nil if the buffer is empty.
func (b *Buffer) Take() *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := b.queue.Dequeue()
	if it != nil {
		b.notifyLocked()
	}
	return it
}

// TakeIf removes the oldest buffered item only if place accepts it. place runs with the buffer
// locked, so the item is never visible in both the buffer and its new holder to other readers
// of this buffer, and never lost in between.
func (b *Buffer) TakeIf(place func(*Item) bool) *Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	it := b.queue.Peek()
	if it == nil || !place(it) {
		return nil
	}
	b.queue.Dequeue()
	b.notifyLocked()
	return it
}

// Status returns a snapshot of the buffer in FIFO order.
func (b *Buffer) Status() HolderStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.queue.Items()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID()
	}
	return HolderStatus{Kind: KindBuffer, Index: b.index, Capacity: b.capacity, Occupied: b.queue.Size(), Items: ids}
}

// SetObserver installs fn to be told about every occupancy change.
func (b *Buffer) SetObserver(fn OccupancyFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observe = fn
	b.notifyLocked()
}

func (b *Buffer) notifyLocked() {
	if b.observe != nil {
		b.observe(KindBuffer, b.index, b.queue.Size(), b.queue.Len())
	}
}
