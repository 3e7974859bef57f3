package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Placement records where an admitted item went.
type Placement struct {
	Kind  HolderKind
	Index int
}

func (p Placement) String() string {
	return fmt.Sprintf("%s %d", p.Kind, p.Index)
}

// Cooker is the admission controller. It places items into units (first fit, in index
// order), falls back to buffers (first fit, in index order), and returns cooked items to
// their lines through the completion callback.
type Cooker struct {
	units       []*Unit
	buffers     []*Buffer
	completions *CompletionQueue
	finished    CompletionFunc
	largest     float64 // largest single unit capacity
}

// NewCooker wires units and buffers to a fresh CompletionQueue. finished is called after an
// item's cook time has elapsed and the item has already been removed from its unit.
// The caller must run Completions().Run for completions to fire.
func NewCooker(units []*Unit, buffers []*Buffer, finished CompletionFunc) *Cooker {
	if finished == nil {
		panic("NewCooker: finished must not be nil")
	}
	c := &Cooker{units: units, buffers: buffers, finished: finished}
	for _, u := range units {
		c.largest = max(c.largest, u.Capacity())
	}
	c.completions = NewCompletionQueue(c.complete)
	return c
}

// Completions returns the timer facility driving this cooker.
func (c *Cooker) Completions() *CompletionQueue { return c.completions }

// Admit places it into the first unit with room, else the first buffer with room.
// On failure the returned error wraps ErrAdmissionFailed, and also ErrItemTooLarge when no
// unit could ever cook the item or ErrInvalidItem for a non-positive size. An item too big
// for every unit is refused even if a buffer could hold it, since it could never leave.
func (c *Cooker) Admit(it *Item) (Placement, error) {
	if it == nil {
		panic("Cooker.Admit: item must not be nil")
	}
	if !(it.Size > 0) {
		return Placement{}, fmt.Errorf("%w: %s: %w (size %g)", ErrAdmissionFailed, it.ID(), ErrInvalidItem, it.Size)
	}
	if it.Size > c.largest {
		return Placement{}, fmt.Errorf("%w: %s: %w (largest unit %g)", ErrAdmissionFailed, it.ID(), ErrItemTooLarge, c.largest)
	}
	if p, ok := c.placeInUnit(it); ok {
		return p, nil
	}
	for _, b := range c.buffers {
		err := b.Put(it)
		if err == nil {
			logrus.Debugf("cooker: stored %s in buffer %d", it.ID(), b.Index())
			return Placement{Kind: KindBuffer, Index: b.Index()}, nil
		}
		if !errors.Is(err, ErrCapacityExceeded) {
			return Placement{}, err
		}
	}
	return Placement{}, fmt.Errorf("%w: %s: no unit or buffer has %g free", ErrAdmissionFailed, it.ID(), it.Size)
}

// placeInUnit puts it in the first unit that fits and schedules its completion.
func (c *Cooker) placeInUnit(it *Item) (Placement, bool) {
	for _, u := range c.units {
		if err := u.Put(it); err != nil {
			continue
		}
		if !c.completions.Schedule(it, u) {
			// Timer facility already abandoned by a kill: the item can never finish.
			u.Remove(it)
			logrus.Warnf("cooker: %s: %v", it.ID(), ErrInterruptedDuringCompletion)
			return Placement{}, false
		}
		logrus.Debugf("cooker: cooking %s in unit %d for %s", it.ID(), u.Index(), it.CookTime)
		return Placement{Kind: KindUnit, Index: u.Index()}, true
	}
	return Placement{}, false
}

// PromoteBuffered tries the head of every buffer in index order and moves the first one that
// fits a unit. found reports whether any buffer held an item at all.
func (c *Cooker) PromoteBuffered() (it *Item, p Placement, found bool) {
	for _, b := range c.buffers {
		if b.Peek() == nil {
			continue
		}
		found = true
		moved := b.TakeIf(func(candidate *Item) bool {
			var ok bool
			p, ok = c.placeInUnit(candidate)
			return ok
		})
		if moved != nil {
			return moved, p, true
		}
	}
	return nil, Placement{}, found
}

func (c *Cooker) complete(it *Item, u *Unit) {
	if !u.Remove(it) {
		logrus.Errorf("cooker: %s finished but was not in unit %d", it.ID(), u.Index())
	}
	logrus.Debugf("cooker: finished %s in unit %d", it.ID(), u.Index())
	c.finished(it, u)
}

// Empty reports whether no item is cooking or buffered.
func (c *Cooker) Empty() bool {
	for _, u := range c.units {
		if u.Len() > 0 {
			return false
		}
	}
	for _, b := range c.buffers {
		if b.Len() > 0 {
			return false
		}
	}
	return c.completions.Pending() == 0
}

// Units returns a snapshot of every unit in index order.
func (c *Cooker) Units() []HolderStatus {
	out := make([]HolderStatus, len(c.units))
	for i, u := range c.units {
		out[i] = u.Status()
	}
	return out
}

// Buffers returns a snapshot of every buffer in index order.
func (c *Cooker) Buffers() []HolderStatus {
	out := make([]HolderStatus, len(c.buffers))
	for i, b := range c.buffers {
		out[i] = b.Status()
	}
	return out
}
