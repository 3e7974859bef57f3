package sim

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/foodfactory/cookstage/sim/metrics"
	"github.com/foodfactory/cookstage/sim/trace"
)

// DefaultIdlePoll is how long the scheduler waits after a cycle that moved nothing, unless
// woken earlier by a produced item or a completion.
const DefaultIdlePoll = 10 * time.Millisecond

// Kitchen is the scheduler. A single goroutine (Run) walks the registered lines round-robin,
// lets buffered items claim free unit capacity first and, only while every buffer is empty,
// admits the head of each line's inbound queue and pauses or resumes the line on the outcome.
type Kitchen struct {
	cooker   *Cooker
	registry *Registry
	trace    *trace.SimulationTrace
	metrics  *metrics.Collectors
	idlePoll time.Duration

	wake     chan struct{}
	draining atomic.Bool
}

// NewKitchen builds the scheduler and its cooker over the given units and buffers.
// tr and m may be nil.
func NewKitchen(units []*Unit, buffers []*Buffer, registry *Registry, idlePoll time.Duration,
	tr *trace.SimulationTrace, m *metrics.Collectors) *Kitchen {
	if registry == nil {
		panic("NewKitchen: registry must not be nil")
	}
	if idlePoll <= 0 {
		idlePoll = DefaultIdlePoll
	}
	k := &Kitchen{
		registry: registry,
		trace:    tr,
		metrics:  m,
		idlePoll: idlePoll,
		wake:     make(chan struct{}, 1),
	}
	if m != nil {
		observe := func(kind HolderKind, index int, occupied float64, items int) {
			m.ObserveHolder(string(kind), index, occupied, items)
		}
		for _, u := range units {
			u.SetObserver(observe)
		}
		for _, b := range buffers {
			b.SetObserver(observe)
		}
	}
	k.cooker = NewCooker(units, buffers, k.finished)
	return k
}

// Cooker returns the admission controller.
func (k *Kitchen) Cooker() *Cooker { return k.cooker }

// Wake nudges the scheduler out of its idle wait. Safe from any goroutine; never blocks.
func (k *Kitchen) Wake() {
	select {
	case k.wake <- struct{}{}:
	default:
	}
}

// Drain switches the scheduler to drain mode: Run returns once every non-blocked inbound
// queue, every buffer and every unit is empty.
func (k *Kitchen) Drain() {
	k.draining.Store(true)
	k.Wake()
}

// Run drives scheduling cycles until ctx is cancelled or, in drain mode, nothing is left.
func (k *Kitchen) Run(ctx context.Context) error {
	logrus.Infof("kitchen: scheduler started")
	defer logrus.Infof("kitchen: scheduler stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		progressed := k.Cycle()
		if k.draining.Load() && k.Drained() {
			logrus.Infof("kitchen: drained")
			return nil
		}
		if progressed {
			continue
		}
		timer := time.NewTimer(k.idlePoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-k.wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// Cycle visits every registered line once, in id order. Reports whether any item moved.
func (k *Kitchen) Cycle() bool {
	progressed := false
	for _, l := range k.registry.Snapshot() {
		if k.step(l) {
			progressed = true
		}
	}
	return progressed
}

// step gives buffered items the first claim on unit capacity. Only when every buffer is
// empty does it take the head of l's inbound queue.
func (k *Kitchen) step(l *Line) bool {
	if it, p, found := k.cooker.PromoteBuffered(); found {
		if it == nil {
			return false
		}
		k.metrics.RecordAdmission(metrics.OutcomePromoted)
		k.trace.RecordAdmission(trace.AdmissionRecord{
			ItemID: it.ID(), LineID: it.LineID, Seq: it.Seq, At: time.Now(),
			Admitted: true, Target: string(p.Kind), Index: p.Index, Promoted: true,
		})
		logrus.Debugf("kitchen: promoted %s from buffer to %s", it.ID(), p)
		return true
	}

	if l.Blocked() != nil {
		return false
	}
	it := l.PeekInbound()
	if it == nil {
		return false
	}

	p, err := k.cooker.Admit(it)
	if err == nil {
		l.popInbound(it)
		l.recordPlacement(p)
		k.metrics.RecordAdmission(string(p.Kind))
		k.trace.RecordAdmission(trace.AdmissionRecord{
			ItemID: it.ID(), LineID: it.LineID, Seq: it.Seq, At: time.Now(),
			Admitted: true, Target: string(p.Kind), Index: p.Index,
		})
		if l.Resume() {
			logrus.Infof("kitchen: production resumes on line %d", l.ID())
			k.recordLineEvent(l, trace.LineResumed, "")
		}
		return true
	}

	terminal := errors.Is(err, ErrItemTooLarge) || errors.Is(err, ErrInvalidItem)
	if terminal && l.Block(err) {
		logrus.Errorf("kitchen: line %d is blocked, its production policy made an item no holder can take: %v", l.ID(), err)
		k.recordLineEvent(l, trace.LineBlocked, err.Error())
	}
	// Repeated failures while already paused are the same episode; only the first counts.
	if !l.Pause() {
		return false
	}
	l.recordFailure()
	outcome := metrics.OutcomeRejected
	if terminal {
		outcome = metrics.OutcomeTooLarge
	}
	k.metrics.RecordAdmission(outcome)
	k.trace.RecordAdmission(trace.AdmissionRecord{
		ItemID: it.ID(), LineID: it.LineID, Seq: it.Seq, At: time.Now(),
		Admitted: false, Index: -1, Reason: err.Error(),
	})
	logrus.Infof("kitchen: production halted on line %d: %v", l.ID(), err)
	k.recordLineEvent(l, trace.LinePaused, err.Error())
	return false
}

// Drained reports whether nothing admissible is left anywhere in the kitchen.
func (k *Kitchen) Drained() bool {
	if !k.cooker.Empty() {
		return false
	}
	for _, l := range k.registry.Snapshot() {
		if l.Blocked() == nil && l.InboundDepth() > 0 {
			return false
		}
	}
	return true
}

// finished returns a cooked item to its line. The cooker has already freed its unit.
func (k *Kitchen) finished(it *Item, u *Unit) {
	l, err := k.registry.Get(it.LineID)
	if err != nil {
		logrus.Errorf("kitchen: finished %s has no line: %v", it.ID(), err)
		return
	}
	l.Deliver(it)
	k.metrics.RecordCompletion()
	k.trace.RecordCompletion(trace.CompletionRecord{
		ItemID: it.ID(), LineID: it.LineID, Seq: it.Seq, Unit: u.Index(), At: time.Now(),
	})
	k.Wake()
}

// abandon collects every item whose completion will never fire and records it as lost.
func (k *Kitchen) abandon() []*Item {
	lost := k.cooker.Completions().Abandon()
	for _, it := range lost {
		logrus.Warnf("kitchen: lost %s: %v", it.ID(), ErrInterruptedDuringCompletion)
		k.trace.RecordLoss(trace.LossRecord{
			ItemID: it.ID(), LineID: it.LineID, Seq: it.Seq, At: time.Now(),
			Reason: ErrInterruptedDuringCompletion.Error(),
		})
	}
	k.metrics.RecordLost(len(lost))
	return lost
}

func (k *Kitchen) recordLineEvent(l *Line, ev trace.LineEvent, reason string) {
	k.metrics.RecordLineEvent(string(ev))
	k.trace.RecordLineEvent(trace.LineEventRecord{LineID: l.ID(), Event: ev, At: time.Now(), Reason: reason})
}
