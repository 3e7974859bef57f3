package sim

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// LineState is the production state of a line.
//
//	running -> paused -> running   (admission feedback from the Kitchen)
//	running|paused -> stopped      (terminal)
type LineState string

const (
	LineRunning LineState = "running"
	LinePaused  LineState = "paused"
	LineStopped LineState = "stopped"
)

// closedSignal is returned by Line.resumed when the line is not paused.
var closedSignal = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Line is an independent production line. It produces items into its inbound queue and
// receives them back, cooked, on its outbound side in sequence order.
type Line struct {
	id     int
	policy ProductionPolicy
	rng    *rand.Rand
	wake   func() // nudges the scheduler after an enqueue; may be nil

	mu      sync.Mutex // guards inbound, nextSeq, blocked
	inbound ItemQueue
	nextSeq int64
	blocked error

	outbound *Outbound

	signalMu sync.Mutex // guards resume; paused is written only while held
	paused   atomic.Bool
	resume   chan struct{}
	stopped  atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}

	produced       atomic.Int64
	admittedUnit   atomic.Int64
	admittedBuffer atomic.Int64
	failures       atomic.Int64
	pauses         atomic.Int64
	resumes        atomic.Int64
}

// NewLine creates a line that has not started producing.
// rng may be nil when the line is only fed through Produce.
func NewLine(id int, policy ProductionPolicy, rng *rand.Rand, ordering OrderingMode) *Line {
	return &Line{
		id:       id,
		policy:   policy,
		rng:      rng,
		outbound: NewOutbound(ordering),
		done:     make(chan struct{}),
	}
}

// ID returns the line id.
func (l *Line) ID() int { return l.id }

// Start launches the production goroutine. It runs until ctx is cancelled or Stop is called.
// Panics if the line has no policy or RNG.
func (l *Line) Start(ctx context.Context) {
	if l.policy == nil || l.rng == nil {
		panic("Line.Start: policy and rng must not be nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.run(ctx)
}

func (l *Line) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.resumed():
		}

		timer := time.NewTimer(l.policy.NextInterval(l.rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// Paused while sleeping: drop this slot and wait for resume.
		if l.paused.Load() {
			continue
		}
		size, cook := l.policy.NextItem(l.rng)
		if it := l.Produce(size, cook); it != nil {
			logrus.Debugf("line %d: produced %s", l.id, it)
		}
	}
}

// Produce synthesizes one item with the next sequence number and appends it to the
// inbound queue. Returns nil once the line is stopped, or for a size that is not a positive
// number; no sequence number is used up in either case.
func (l *Line) Produce(size float64, cookTime time.Duration) *Item {
	if l.stopped.Load() {
		return nil
	}
	if !(size > 0) {
		logrus.Errorf("line %d: dropped item of size %g: %v", l.id, size, ErrInvalidItem)
		return nil
	}
	l.mu.Lock()
	it := &Item{Size: size, CookTime: cookTime, LineID: l.id, Seq: l.nextSeq}
	l.nextSeq++
	l.inbound.Enqueue(it)
	l.mu.Unlock()

	l.produced.Add(1)
	if l.wake != nil {
		l.wake()
	}
	return it
}

// Stop ends production permanently. Items already produced are still admitted, cooked and
// delivered. Stop does not wait for the production goroutine; use Done for that.
func (l *Line) Stop() {
	if l.stopped.Swap(true) {
		return
	}
	if l.cancel != nil {
		l.cancel()
	} else {
		close(l.done)
	}
	logrus.Infof("line %d: production stopped", l.id)
}

// Done is closed once the production goroutine has exited (or at Stop for a line that was
// never started).
func (l *Line) Done() <-chan struct{} { return l.done }

// Pause suspends item synthesis. Reports whether the line was running before.
func (l *Line) Pause() bool {
	l.signalMu.Lock()
	defer l.signalMu.Unlock()
	if l.paused.Load() {
		return false
	}
	l.resume = make(chan struct{})
	l.paused.Store(true)
	l.pauses.Add(1)
	return true
}

// Resume re-enables item synthesis. Reports whether the line was paused before.
func (l *Line) Resume() bool {
	l.signalMu.Lock()
	defer l.signalMu.Unlock()
	if !l.paused.Load() {
		return false
	}
	l.paused.Store(false)
	close(l.resume)
	l.resumes.Add(1)
	return true
}

// Paused reports whether the line is paused.
func (l *Line) Paused() bool { return l.paused.Load() }

// resumed returns a channel that is closed when the line is not paused.
func (l *Line) resumed() <-chan struct{} {
	l.signalMu.Lock()
	defer l.signalMu.Unlock()
	if !l.paused.Load() {
		return closedSignal
	}
	return l.resume
}

// State returns the current production state.
func (l *Line) State() LineState {
	switch {
	case l.stopped.Load():
		return LineStopped
	case l.paused.Load():
		return LinePaused
	default:
		return LineRunning
	}
}

// Block marks the line as stuck behind an item that can never be admitted.
// Reports true only for the first call.
func (l *Line) Block(err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.blocked != nil {
		return false
	}
	l.blocked = err
	return true
}

// Blocked returns the reason the line is blocked, or nil.
func (l *Line) Blocked() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocked
}

// PeekInbound returns the oldest item waiting for admission, or nil.
func (l *Line) PeekInbound() *Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inbound.Peek()
}

// popInbound removes it, which must be the current head, from the inbound queue.
// Only the scheduler pops, so a head seen by PeekInbound is still the head here.
func (l *Line) popInbound(it *Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbound.mustFront(it)
	l.inbound.Dequeue()
}

// InboundDepth returns the number of items waiting for admission.
func (l *Line) InboundDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inbound.Len()
}

// Deliver hands a cooked item back to the line.
func (l *Line) Deliver(it *Item) {
	l.outbound.Push(it)
}

// TakeNextFinished returns the next cooked item in sequence order.
// Under strict ordering it returns false while the next expected item is still in the kitchen.
func (l *Line) TakeNextFinished() (Item, bool) {
	return l.outbound.TakeNext()
}

// DrainFinished takes every item that TakeNextFinished would currently release.
func (l *Line) DrainFinished() []Item {
	var out []Item
	for {
		it, ok := l.outbound.TakeNext()
		if !ok {
			return out
		}
		out = append(out, it)
	}
}

// OutboundDepth returns the number of cooked items not yet taken.
func (l *Line) OutboundDepth() int { return l.outbound.Len() }

// Delivered returns every item taken from the outbound side so far, in take order.
func (l *Line) Delivered() []Item { return l.outbound.Delivered() }

func (l *Line) recordPlacement(p Placement) {
	if p.Kind == KindUnit {
		l.admittedUnit.Add(1)
	} else {
		l.admittedBuffer.Add(1)
	}
}

func (l *Line) recordFailure() { l.failures.Add(1) }

// LineStatus is a point-in-time view of a line.
type LineStatus struct {
	ID                int       `json:"id"`
	State             LineState `json:"state"`
	Blocked           string    `json:"blocked,omitempty"`
	InboundDepth      int       `json:"inbound_depth"`
	OutboundDepth     int       `json:"outbound_depth"`
	Produced          int64     `json:"produced"`
	AdmittedToUnit    int64     `json:"admitted_to_unit"`
	AdmittedToBuffer  int64     `json:"admitted_to_buffer"`
	AdmissionFailures int64     `json:"admission_failures"`
	Pauses            int64     `json:"pauses"`
	Resumes           int64     `json:"resumes"`
	Delivered         []Item    `json:"delivered"`
}

// Status returns a snapshot of the line.
func (l *Line) Status() LineStatus {
	st := LineStatus{
		ID:                l.id,
		State:             l.State(),
		InboundDepth:      l.InboundDepth(),
		OutboundDepth:     l.OutboundDepth(),
		Produced:          l.produced.Load(),
		AdmittedToUnit:    l.admittedUnit.Load(),
		AdmittedToBuffer:  l.admittedBuffer.Load(),
		AdmissionFailures: l.failures.Load(),
		Pauses:            l.pauses.Load(),
		Resumes:           l.resumes.Load(),
		Delivered:         l.Delivered(),
	}
	if err := l.Blocked(); err != nil {
		st.Blocked = err.Error()
	}
	return st
}
