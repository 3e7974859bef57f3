package sim

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCooker(t *testing.T, units, buffers []float64) (*Cooker, []*Unit, []*Buffer, *firedLog) {
	t.Helper()
	us, bs, err := BuildHolders(KitchenConfig{UnitCapacities: units, BufferCapacities: buffers})
	require.NoError(t, err)
	var log firedLog
	return NewCooker(us, bs, log.fire), us, bs, &log
}

func TestCooker_Admit_UnitsFirstThenBuffers(t *testing.T) {
	// GIVEN two units of 20 and one buffer of 15
	c, us, bs, _ := newTestCooker(t, []float64{20, 20}, []float64{15})

	// WHEN three items of size 12 are admitted
	var placements []Placement
	for seq := int64(0); seq < 3; seq++ {
		p, err := c.Admit(&Item{Size: 12, Seq: seq, CookTime: time.Hour})
		require.NoError(t, err)
		placements = append(placements, p)
	}

	// THEN unit 0, unit 1, buffer 0, each at 12
	assert.Equal(t, []Placement{{KindUnit, 0}, {KindUnit, 1}, {KindBuffer, 0}}, placements)
	assert.Equal(t, 12.0, us[0].Occupied())
	assert.Equal(t, 12.0, us[1].Occupied())
	assert.Equal(t, 12.0, bs[0].Occupied())
	assert.Equal(t, 2, c.Completions().Pending(), "only unit placements start cooking")
}

func TestCooker_Admit_FirstFitInIndexOrder(t *testing.T) {
	// GIVEN units of 5 and 20: a size-4 item fits the first, a size-6 item only the second
	c, _, _, _ := newTestCooker(t, []float64{5, 20}, nil)

	p, err := c.Admit(&Item{Size: 4, CookTime: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, Placement{KindUnit, 0}, p)

	p, err = c.Admit(&Item{Size: 6, Seq: 1, CookTime: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, Placement{KindUnit, 1}, p)
}

func TestCooker_Admit_NoRoom_AdmissionFailed(t *testing.T) {
	// GIVEN a full unit and a full buffer
	c, _, _, _ := newTestCooker(t, []float64{10}, []float64{10})
	_, err := c.Admit(&Item{Size: 10, CookTime: time.Hour})
	require.NoError(t, err)
	_, err = c.Admit(&Item{Size: 10, Seq: 1, CookTime: time.Hour})
	require.NoError(t, err)

	// WHEN one more item arrives
	_, err = c.Admit(&Item{Size: 1, Seq: 2})

	// THEN admission fails, not as too-large, and the capacity error does not leak
	assert.True(t, errors.Is(err, ErrAdmissionFailed))
	assert.False(t, errors.Is(err, ErrItemTooLarge))
	assert.False(t, errors.Is(err, ErrCapacityExceeded))
}

func TestCooker_Admit_OversizeNeverAdmitted(t *testing.T) {
	// GIVEN an empty kitchen whose largest holder is 10
	c, us, _, _ := newTestCooker(t, []float64{10}, []float64{8})

	// WHEN an item of size 15 is offered repeatedly
	for i := 0; i < 3; i++ {
		_, err := c.Admit(&Item{Size: 15})
		// THEN it always fails with ErrItemTooLarge, which also wraps ErrAdmissionFailed
		assert.ErrorIs(t, err, ErrItemTooLarge)
		assert.ErrorIs(t, err, ErrAdmissionFailed)
	}
	assert.Equal(t, 0.0, us[0].Occupied())
	assert.True(t, c.Empty())
}

func TestCooker_PromoteBuffered_MovesHeadWhenUnitFrees(t *testing.T) {
	// GIVEN a unit of 10 holding an item and a buffer holding one waiting item
	c, us, bs, _ := newTestCooker(t, []float64{10}, []float64{10})
	cooking := &Item{Size: 8, CookTime: time.Hour}
	waiting := &Item{Size: 8, Seq: 1, CookTime: time.Hour}
	_, err := c.Admit(cooking)
	require.NoError(t, err)
	_, err = c.Admit(waiting)
	require.NoError(t, err)

	// WHEN promotion is attempted while the unit is full
	it, _, found := c.PromoteBuffered()

	// THEN the buffer has an item but nothing moved
	assert.True(t, found)
	assert.Nil(t, it)
	assert.Equal(t, 1, bs[0].Len())

	// WHEN the cooking item leaves the unit
	require.True(t, us[0].Remove(cooking))
	it, p, found := c.PromoteBuffered()

	// THEN the buffered item moves into the unit and starts cooking
	assert.True(t, found)
	assert.Same(t, waiting, it)
	assert.Equal(t, Placement{KindUnit, 0}, p)
	assert.Equal(t, 0, bs[0].Len())
	assert.True(t, us[0].Contains(waiting))
}

func TestCooker_PromoteBuffered_NothingBuffered(t *testing.T) {
	c, _, _, _ := newTestCooker(t, []float64{10}, []float64{10})
	it, _, found := c.PromoteBuffered()
	assert.Nil(t, it)
	assert.False(t, found)
}

func TestCooker_Complete_RemovesFromUnitBeforeCallback(t *testing.T) {
	// GIVEN a cooker whose finished callback inspects the unit
	us, bs, err := BuildHolders(KitchenConfig{UnitCapacities: []float64{10}})
	require.NoError(t, err)
	var occupiedAtCallback float64 = -1
	c := NewCooker(us, bs, func(it *Item, u *Unit) {
		occupiedAtCallback = u.Occupied()
	})
	it := &Item{Size: 10, CookTime: time.Hour}
	_, err = c.Admit(it)
	require.NoError(t, err)

	// WHEN the completion fires
	c.complete(it, us[0])

	// THEN the unit was already reclaimed
	assert.Equal(t, 0.0, occupiedAtCallback)
}

func TestCooker_Admit_AfterAbandon_NotPlacedInUnit(t *testing.T) {
	// GIVEN a cooker whose timer facility was abandoned by a kill
	c, us, _, _ := newTestCooker(t, []float64{10}, nil)
	c.Completions().Abandon()

	// WHEN an item is admitted
	_, err := c.Admit(&Item{Size: 1})

	// THEN it is refused and the unit stays empty
	assert.ErrorIs(t, err, ErrAdmissionFailed)
	assert.Equal(t, 0, us[0].Len())
}

func TestCooker_Admit_FitsBufferButNoUnit_TooLarge(t *testing.T) {
	// GIVEN a unit of 10 and a buffer of 20
	c, _, bs, _ := newTestCooker(t, []float64{10}, []float64{20})

	// WHEN an item of 15 is offered
	_, err := c.Admit(&Item{Size: 15})

	// THEN it is refused outright rather than parked in a buffer it could never leave
	assert.ErrorIs(t, err, ErrItemTooLarge)
	assert.Equal(t, 0, bs[0].Len())
}

func TestCooker_Admit_NonPositiveSize_Invalid(t *testing.T) {
	c, us, _, _ := newTestCooker(t, []float64{10}, nil)
	for _, size := range []float64{0, -3, math.NaN()} {
		_, err := c.Admit(&Item{Size: size})
		assert.ErrorIs(t, err, ErrInvalidItem)
		assert.ErrorIs(t, err, ErrAdmissionFailed)
	}
	assert.Equal(t, 0.0, us[0].Occupied())
	assert.Equal(t, 0, us[0].Len())
}

func TestCooker_PromoteBuffered_TriesEveryBufferHead(t *testing.T) {
	// GIVEN a unit of 10 with 4 free, buffer 0 headed by an 8 and buffer 1 headed by a 3
	c, us, bs, _ := newTestCooker(t, []float64{10}, []float64{20, 20})
	_, err := c.Admit(&Item{Size: 6, CookTime: time.Hour})
	require.NoError(t, err)
	stuck := &Item{Size: 8, Seq: 1, CookTime: time.Hour}
	small := &Item{Size: 3, Seq: 2, CookTime: time.Hour}
	require.NoError(t, bs[0].Put(stuck))
	require.NoError(t, bs[1].Put(small))

	// WHEN promotion runs
	it, p, found := c.PromoteBuffered()

	// THEN buffer 1's head moves past the head of buffer 0 that does not fit
	assert.True(t, found)
	assert.Same(t, small, it)
	assert.Equal(t, Placement{KindUnit, 0}, p)
	assert.True(t, us[0].Contains(small))
	assert.Equal(t, 1, bs[0].Len())
	assert.Equal(t, 0, bs[1].Len())

	// AND with no head fitting, found still reports the waiting item
	it, _, found = c.PromoteBuffered()
	assert.Nil(t, it)
	assert.True(t, found)
}
