package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultUniformPolicy_StaysInRange(t *testing.T) {
	// GIVEN the stock policy with a one-second time unit
	p := DefaultUniformPolicy(time.Second)
	assert.NoError(t, p.Validate())
	rng := rand.New(rand.NewSource(42))

	// WHEN many items and intervals are drawn
	for i := 0; i < 1000; i++ {
		size, cook := p.NextItem(rng)
		interval := p.NextInterval(rng)

		// THEN every draw respects the half-open ranges
		assert.GreaterOrEqual(t, size, 10.0)
		assert.Less(t, size, 30.0)
		assert.GreaterOrEqual(t, cook, 5*time.Second)
		assert.Less(t, cook, 15*time.Second)
		assert.GreaterOrEqual(t, interval, 3*time.Second)
		assert.Less(t, interval, 6*time.Second)
	}
}

func TestIntRange_Sample_DegenerateRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 4, IntRange{Min: 4, Max: 4}.Sample(rng))
	assert.Equal(t, 4, IntRange{Min: 4, Max: 2}.Sample(rng))
}

func TestUniformPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*UniformPolicy)
	}{
		{"zero size", func(p *UniformPolicy) { p.Size.Min = 0 }},
		{"negative cook", func(p *UniformPolicy) { p.CookTime.Min = -1 }},
		{"zero interval", func(p *UniformPolicy) { p.Interval.Min = 0 }},
		{"zero time unit", func(p *UniformPolicy) { p.TimeUnit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultUniformPolicy(time.Second)
			tt.modify(p)
			assert.ErrorIs(t, p.Validate(), ErrConfigurationInvalid)
		})
	}
}

func TestUniformPolicy_SameSeedSameStream(t *testing.T) {
	// GIVEN two RNG trees with the same seed
	p := DefaultUniformPolicy(time.Millisecond)
	a := NewPartitionedRNG(NewSimulationKey(9)).ForSubsystem(SubsystemLine(0))
	b := NewPartitionedRNG(NewSimulationKey(9)).ForSubsystem(SubsystemLine(0))

	// THEN the production streams are identical
	for i := 0; i < 20; i++ {
		sa, ca := p.NextItem(a)
		sb, cb := p.NextItem(b)
		assert.Equal(t, sa, sb)
		assert.Equal(t, ca, cb)
	}
}

func TestIntRange_Upper(t *testing.T) {
	assert.Equal(t, 29, IntRange{Min: 10, Max: 30}.Upper())
	assert.Equal(t, 4, IntRange{Min: 4, Max: 4}.Upper())
	assert.Equal(t, 4, IntRange{Min: 4, Max: 2}.Upper())
}
