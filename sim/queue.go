// Implements the ItemQueue, the FIFO used by buffers and by a line's inbound side.

package sim

import (
	"fmt"
	"strings"
)

// ItemQueue is a FIFO of items.
// It is not safe for concurrent use; owners (Buffer, Line) guard it with their own mutex.
type ItemQueue struct {
	queue []*Item
	size  float64 // sum of Size over queued items
}

// Enqueue adds an item to the back of the queue.
func (q *ItemQueue) Enqueue(it *Item) {
	if it == nil {
		panic("Enqueue: item must not be nil")
	}
	q.queue = append(q.queue, it)
	q.size += it.Size
}

func (q *ItemQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(val.ID())
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of items in the queue.
func (q *ItemQueue) Len() int {
	return len(q.queue)
}

// Size returns the total size of the queued items.
func (q *ItemQueue) Size() float64 {
	return q.size
}

// Peek returns the item at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *ItemQueue) Peek() *Item {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Dequeue removes and returns the item at the front of the queue.
// Returns nil if the queue is empty.
func (q *ItemQueue) Dequeue() *Item {
	if len(q.queue) == 0 {
		return nil
	}
	it := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	q.size -= it.Size
	if len(q.queue) == 0 {
		// Reset accumulated float drift and release the backing array.
		q.queue = nil
		q.size = 0
	}
	return it
}

// Items returns a copy of the queue contents in FIFO order.
func (q *ItemQueue) Items() []*Item {
	out := make([]*Item, len(q.queue))
	copy(out, q.queue)
	return out
}

// mustFront panics unless it is the front of the queue. Used where a peek is followed by a
// dequeue of the same item by the single consumer.
func (q *ItemQueue) mustFront(it *Item) {
	if q.Peek() != it {
		panic(fmt.Sprintf("ItemQueue: %s is not at the front of %s", it.ID(), q))
	}
}
