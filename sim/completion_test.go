package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firedLog records completions in firing order.
type firedLog struct {
	mu    sync.Mutex
	items []*Item
}

func (f *firedLog) fire(it *Item, _ *Unit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, it)
}

func (f *firedLog) seqs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.items))
	for i, it := range f.items {
		out[i] = it.Seq
	}
	return out
}

func TestCompletionQueue_FiresInDeadlineThenScheduleOrder(t *testing.T) {
	// GIVEN a queue with a frozen clock and three completions, two sharing a deadline
	var log firedLog
	q := NewCompletionQueue(log.fire)
	base := time.Unix(0, 0)
	now := base
	var clockMu sync.Mutex
	q.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}
	u := NewUnit(0, 100)
	require.True(t, q.Schedule(&Item{Seq: 0, CookTime: time.Second}, u))
	require.True(t, q.Schedule(&Item{Seq: 1, CookTime: 3 * time.Second}, u))
	require.True(t, q.Schedule(&Item{Seq: 2, CookTime: time.Second}, u))
	assert.Equal(t, 3, q.Pending())

	// WHEN the clock passes every deadline
	clockMu.Lock()
	now = base.Add(5 * time.Second)
	clockMu.Unlock()
	due := q.popDue()

	// THEN ties break by schedule order: 0, 2, then 1
	got := make([]int64, len(due))
	for i, c := range due {
		got[i] = c.item.Seq
	}
	if diff := cmp.Diff([]int64{0, 2, 1}, got); diff != "" {
		t.Errorf("firing order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, q.Pending(), "popped completions count as pending until their callback returns")
}

func TestCompletionQueue_Run_FiresAfterCookTime(t *testing.T) {
	// GIVEN a running queue
	var log firedLog
	q := NewCompletionQueue(log.fire)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	// WHEN two items are scheduled, the longer one first
	u := NewUnit(0, 100)
	q.Schedule(&Item{Seq: 1, CookTime: 40 * time.Millisecond}, u)
	q.Schedule(&Item{Seq: 0, CookTime: 5 * time.Millisecond}, u)

	// THEN both fire, shortest cook time first
	assert.Eventually(t, func() bool { return len(log.seqs()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{0, 1}, log.seqs())
	assert.Eventually(t, q.Idle, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestCompletionQueue_Abandon_ReturnsPendingAndRefusesNew(t *testing.T) {
	// GIVEN a queue that never runs, with two pending completions
	var log firedLog
	q := NewCompletionQueue(log.fire)
	u := NewUnit(0, 100)
	q.Schedule(&Item{Seq: 0, CookTime: time.Hour}, u)
	q.Schedule(&Item{Seq: 1, CookTime: time.Minute}, u)

	// WHEN it is abandoned
	lost := q.Abandon()

	// THEN the pending items come back in deadline order and new schedules are refused
	require.Len(t, lost, 2)
	assert.Equal(t, int64(1), lost[0].Seq)
	assert.Equal(t, int64(0), lost[1].Seq)
	assert.False(t, q.Schedule(&Item{Seq: 2}, u))
	assert.Equal(t, 0, q.Pending())
	assert.Empty(t, log.seqs())
}

func TestNewCompletionQueue_NilCallbackPanics(t *testing.T) {
	assert.Panics(t, func() { NewCompletionQueue(nil) })
}
