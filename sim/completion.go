package sim

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// pendingCompletion is an item cooking in a unit, due at deadline.
type pendingCompletion struct {
	deadline time.Time
	order    uint64 // schedule order, deterministic tie-breaker
	item     *Item
	unit     *Unit
}

// completionHeap orders pending completions by deadline, then schedule order.
type completionHeap []pendingCompletion

func (h completionHeap) Len() int { return len(h) }

func (h completionHeap) Less(i, j int) bool {
	if !h[i].deadline.Equal(h[j].deadline) {
		return h[i].deadline.Before(h[j].deadline)
	}
	return h[i].order < h[j].order
}

func (h completionHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *completionHeap) Push(x interface{}) {
	*h = append(*h, x.(pendingCompletion))
}

func (h *completionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = pendingCompletion{}
	*h = old[:n-1]
	return c
}

// CompletionFunc is invoked when an item's cook time has elapsed.
type CompletionFunc func(it *Item, u *Unit)

// CompletionQueue is the kitchen's single timer facility. One goroutine (Run) sleeps until
// the earliest deadline and fires every completion that is due, in deadline order.
// Schedule is safe to call from any goroutine.
type CompletionQueue struct {
	mu        sync.Mutex
	pending   completionHeap
	order     uint64
	firing    int // popped but callback not yet returned
	abandoned bool

	wake   chan struct{}
	onFire CompletionFunc
	now    func() time.Time
}

// NewCompletionQueue creates a queue that calls onFire for each due completion.
func NewCompletionQueue(onFire CompletionFunc) *CompletionQueue {
	if onFire == nil {
		panic("NewCompletionQueue: onFire must not be nil")
	}
	return &CompletionQueue{
		pending: make(completionHeap, 0),
		wake:    make(chan struct{}, 1),
		onFire:  onFire,
		now:     time.Now,
	}
}

// Schedule registers it to complete after it.CookTime. Returns false if the queue has been
// abandoned; the caller owns the item in that case.
func (q *CompletionQueue) Schedule(it *Item, u *Unit) bool {
	q.mu.Lock()
	if q.abandoned {
		q.mu.Unlock()
		return false
	}
	q.order++
	heap.Push(&q.pending, pendingCompletion{
		deadline: q.now().Add(it.CookTime),
		order:    q.order,
		item:     it,
		unit:     u,
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Run fires completions as they come due until ctx is cancelled. Completions still pending
// at that point stay queued; collect them with Abandon.
func (q *CompletionQueue) Run(ctx context.Context) error {
	for {
		for _, c := range q.popDue() {
			q.onFire(c.item, c.unit)
			q.mu.Lock()
			q.firing--
			q.mu.Unlock()
		}

		var timerC <-chan time.Time
		var timer *time.Timer
		if next, ok := q.nextDeadline(); ok {
			timer = time.NewTimer(next.Sub(q.now()))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-q.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (q *CompletionQueue) popDue() []pendingCompletion {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	var due []pendingCompletion
	for len(q.pending) > 0 && !q.pending[0].deadline.After(now) {
		due = append(due, heap.Pop(&q.pending).(pendingCompletion))
	}
	q.firing += len(due)
	return due
}

func (q *CompletionQueue) nextDeadline() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return time.Time{}, false
	}
	return q.pending[0].deadline, true
}

// Pending returns the number of items still cooking, including those being handed back to
// their line right now.
func (q *CompletionQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + q.firing
}

// Idle reports whether nothing is cooking.
func (q *CompletionQueue) Idle() bool { return q.Pending() == 0 }

// Abandon stops accepting new completions and returns the items whose timers never fired,
// in deadline order. Each of them is taken out of its unit, freeing the capacity.
func (q *CompletionQueue) Abandon() []*Item {
	q.mu.Lock()
	q.abandoned = true
	var dropped []pendingCompletion
	for len(q.pending) > 0 {
		dropped = append(dropped, heap.Pop(&q.pending).(pendingCompletion))
	}
	q.mu.Unlock()

	lost := make([]*Item, len(dropped))
	for i, c := range dropped {
		c.unit.Remove(c.item)
		lost[i] = c.item
	}
	return lost
}
