package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_Produce_AssignsIncreasingSeq(t *testing.T) {
	// GIVEN a line with a wake hook
	l := NewLine(4, nil, nil, OrderingStrict)
	wakes := 0
	l.wake = func() { wakes++ }

	// WHEN three items are produced
	a := l.Produce(1, time.Second)
	b := l.Produce(2, time.Second)
	c := l.Produce(3, time.Second)

	// THEN they carry the line id and sequence 0, 1, 2 in inbound order
	assert.Equal(t, []int64{0, 1, 2}, []int64{a.Seq, b.Seq, c.Seq})
	assert.Equal(t, 4, b.LineID)
	assert.Same(t, a, l.PeekInbound())
	assert.Equal(t, 3, l.InboundDepth())
	assert.Equal(t, 3, wakes)
	assert.Equal(t, int64(3), l.Status().Produced)
}

func TestLine_PauseResume_Transitions(t *testing.T) {
	l := NewLine(0, nil, nil, OrderingStrict)

	assert.Equal(t, LineRunning, l.State())
	assert.False(t, l.Resume(), "resuming a running line is a no-op")

	assert.True(t, l.Pause())
	assert.False(t, l.Pause(), "pausing twice is one pause")
	assert.Equal(t, LinePaused, l.State())

	assert.True(t, l.Resume())
	assert.Equal(t, LineRunning, l.State())

	st := l.Status()
	assert.Equal(t, int64(1), st.Pauses)
	assert.Equal(t, int64(1), st.Resumes)
}

func TestLine_Block_OnlyFirstCallCounts(t *testing.T) {
	l := NewLine(0, nil, nil, OrderingStrict)
	first := errors.New("first")

	assert.True(t, l.Block(first))
	assert.False(t, l.Block(errors.New("second")))
	assert.Equal(t, first, l.Blocked())
	assert.Equal(t, "first", l.Status().Blocked)
}

func TestLine_Stop_RejectsFurtherProduction(t *testing.T) {
	// GIVEN a never-started line
	l := NewLine(0, nil, nil, OrderingStrict)
	l.Produce(1, time.Second)

	// WHEN it is stopped (twice)
	l.Stop()
	l.Stop()

	// THEN Done is closed, nothing more is produced, queued items remain
	select {
	case <-l.Done():
	default:
		t.Fatal("Done must be closed after Stop on a never-started line")
	}
	assert.Nil(t, l.Produce(1, time.Second))
	assert.Equal(t, 1, l.InboundDepth())
	assert.Equal(t, LineStopped, l.State())
}

func TestLine_Start_ProducesFromPolicy(t *testing.T) {
	// GIVEN a line with a fast fixed policy
	l := NewLine(0, fixedPolicy{size: 7, cook: time.Second, interval: time.Millisecond}, rand.New(rand.NewSource(1)), OrderingStrict)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WHEN it runs
	l.Start(ctx)

	// THEN items appear in inbound
	assert.Eventually(t, func() bool { return l.InboundDepth() >= 3 }, 2*time.Second, time.Millisecond)
	head := l.PeekInbound()
	require.NotNil(t, head)
	assert.Equal(t, 7.0, head.Size)

	l.Stop()
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("production goroutine did not exit")
	}
}

func TestLine_Paused_ProductionWaits(t *testing.T) {
	// GIVEN a paused line with a fast policy
	l := NewLine(0, fixedPolicy{size: 1, interval: time.Millisecond}, rand.New(rand.NewSource(1)), OrderingStrict)
	l.Pause()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	// WHEN time passes
	time.Sleep(30 * time.Millisecond)

	// THEN nothing was produced
	assert.Equal(t, 0, l.InboundDepth())

	// WHEN it resumes
	l.Resume()

	// THEN production restarts
	assert.Eventually(t, func() bool { return l.InboundDepth() > 0 }, 2*time.Second, time.Millisecond)
	cancel()
	<-l.Done()
}

func TestLine_Start_NilPolicyPanics(t *testing.T) {
	l := NewLine(0, nil, nil, OrderingStrict)
	assert.Panics(t, func() { l.Start(context.Background()) })
}

func TestLine_DrainFinished_StrictOrder(t *testing.T) {
	// GIVEN a line whose items 1 and 2 finished before item 0
	l := NewLine(0, nil, nil, OrderingStrict)
	items := []*Item{l.Produce(1, 0), l.Produce(1, 0), l.Produce(1, 0)}
	l.Deliver(items[2])
	l.Deliver(items[1])

	// THEN nothing is released until item 0 arrives
	assert.Empty(t, l.DrainFinished())
	assert.Equal(t, 2, l.OutboundDepth())

	l.Deliver(items[0])
	assert.Equal(t, []int64{0, 1, 2}, seqs(l.DrainFinished()))
	assert.Equal(t, []int64{0, 1, 2}, seqs(l.Delivered()))
	assert.NoError(t, CheckDeliveredOrder(l.Status().Delivered))
}

func TestLine_Produce_RejectsNonPositiveSize(t *testing.T) {
	// GIVEN a fresh line
	l := NewLine(0, nil, nil, OrderingStrict)

	// WHEN sizes that are not positive numbers are produced
	for _, size := range []float64{0, -5, math.NaN()} {
		assert.Nil(t, l.Produce(size, time.Second))
	}

	// THEN nothing is queued and the next valid item still gets seq 0
	assert.Equal(t, 0, l.InboundDepth())
	it := l.Produce(2, time.Second)
	require.NotNil(t, it)
	assert.Equal(t, int64(0), it.Seq)
}
