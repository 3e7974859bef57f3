package sim

import (
	"container/heap"
	"fmt"
	"sync"
)

// OrderingMode selects how a line's outbound side releases finished items.
type OrderingMode string

const (
	// OrderingStrict releases an item only when it is the next expected sequence number.
	// A gap (an earlier item still cooking or buffered) holds back everything after it.
	OrderingStrict OrderingMode = "strict"
	// OrderingRelaxed releases the lowest sequence number currently finished, even if an
	// earlier item has not finished yet.
	OrderingRelaxed OrderingMode = "relaxed"
)

// ValidOrderingModes is the set of recognized ordering names. Empty means strict.
var ValidOrderingModes = map[OrderingMode]bool{"": true, OrderingStrict: true, OrderingRelaxed: true}

// finishedHeap implements heap.Interface over items ordered by Seq.
type finishedHeap []*Item

func (h finishedHeap) Len() int           { return len(h) }
func (h finishedHeap) Less(i, j int) bool { return h[i].Seq < h[j].Seq }
func (h finishedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *finishedHeap) Push(x interface{}) {
	*h = append(*h, x.(*Item))
}

func (h *finishedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Outbound is a line's reorder buffer. Completions insert concurrently in any order; the
// single consumer takes items out by sequence number.
type Outbound struct {
	mu        sync.Mutex
	mode      OrderingMode
	finished  finishedHeap
	next      int64  // next sequence number expected by the consumer
	delivered []Item // every item taken so far, in take order
}

// NewOutbound creates an empty reorder buffer. An empty mode means OrderingStrict.
func NewOutbound(mode OrderingMode) *Outbound {
	if mode == "" {
		mode = OrderingStrict
	}
	if !ValidOrderingModes[mode] {
		panic(fmt.Sprintf("NewOutbound: unknown ordering mode %q", mode))
	}
	o := &Outbound{mode: mode, finished: make(finishedHeap, 0)}
	heap.Init(&o.finished)
	return o
}

// Push adds a finished item.
func (o *Outbound) Push(it *Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	heap.Push(&o.finished, it)
}

// TakeNext removes and returns the next item the consumer may see.
// Returns false if nothing is releasable under the ordering mode.
func (o *Outbound) TakeNext() (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.finished) == 0 {
		return Item{}, false
	}
	head := o.finished[0]
	if o.mode == OrderingStrict && head.Seq != o.next {
		return Item{}, false
	}
	heap.Pop(&o.finished)
	if head.Seq >= o.next {
		o.next = head.Seq + 1
	}
	o.delivered = append(o.delivered, *head)
	return *head, true
}

// Len returns the number of finished items not yet taken.
func (o *Outbound) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.finished)
}

// NextExpected returns the sequence number the consumer is waiting for.
func (o *Outbound) NextExpected() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.next
}

// Delivered returns a copy of every item taken so far, in take order.
func (o *Outbound) Delivered() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Item, len(o.delivered))
	copy(out, o.delivered)
	return out
}

// DeliveredCount returns how many items have been taken.
func (o *Outbound) DeliveredCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.delivered)
}

// CheckDeliveredOrder returns an error if any item appears after one with a higher
// sequence number from the same line.
func CheckDeliveredOrder(items []Item) error {
	last := make(map[int]int64)
	for i, it := range items {
		if prev, ok := last[it.LineID]; ok && it.Seq < prev {
			return fmt.Errorf("position %d: line %d delivered seq %d after seq %d", i, it.LineID, it.Seq, prev)
		}
		last[it.LineID] = it.Seq
	}
	return nil
}
