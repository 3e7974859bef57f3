package sim

import (
	"fmt"
	"math/rand"
	"time"
)

// ProductionPolicy decides what a line produces and how often.
// Each line calls it from its own goroutine with its own RNG stream.
type ProductionPolicy interface {
	// NextItem returns the size and cook time of the next item.
	NextItem(rng *rand.Rand) (size float64, cookTime time.Duration)
	// NextInterval returns how long the line waits before producing the next item.
	NextInterval(rng *rand.Rand) time.Duration
}

// IntRange is a half-open integer range [Min, Max). Max <= Min always yields Min.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Sample draws uniformly from the range.
func (r IntRange) Sample(rng *rand.Rand) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min)
}

// Upper returns the largest value Sample can return.
func (r IntRange) Upper() int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Max - 1
}

// UniformPolicy draws integer sizes and integer multiples of TimeUnit uniformly.
type UniformPolicy struct {
	Size     IntRange      // size units
	CookTime IntRange      // in TimeUnit
	Interval IntRange      // in TimeUnit
	TimeUnit time.Duration // length of one time unit
}

// DefaultUniformPolicy returns the stock production policy: sizes in [10,30), cook times in
// [5,15) time units, and an item every 3 to 5 time units.
func DefaultUniformPolicy(timeUnit time.Duration) *UniformPolicy {
	return &UniformPolicy{
		Size:     IntRange{Min: 10, Max: 30},
		CookTime: IntRange{Min: 5, Max: 15},
		Interval: IntRange{Min: 3, Max: 6},
		TimeUnit: timeUnit,
	}
}

// Validate checks that the policy can only produce positive sizes and non-negative durations.
func (p *UniformPolicy) Validate() error {
	if p.Size.Min <= 0 {
		return fmt.Errorf("%w: production size min must be > 0, got %d", ErrConfigurationInvalid, p.Size.Min)
	}
	if p.CookTime.Min < 0 {
		return fmt.Errorf("%w: production cook_time min must be >= 0, got %d", ErrConfigurationInvalid, p.CookTime.Min)
	}
	if p.Interval.Min <= 0 {
		return fmt.Errorf("%w: production interval min must be > 0, got %d", ErrConfigurationInvalid, p.Interval.Min)
	}
	if p.TimeUnit <= 0 {
		return fmt.Errorf("%w: time unit must be > 0, got %s", ErrConfigurationInvalid, p.TimeUnit)
	}
	return nil
}

func (p *UniformPolicy) NextItem(rng *rand.Rand) (float64, time.Duration) {
	size := p.Size.Sample(rng)
	cook := p.CookTime.Sample(rng)
	return float64(size), time.Duration(cook) * p.TimeUnit
}

func (p *UniformPolicy) NextInterval(rng *rand.Rand) time.Duration {
	return time.Duration(p.Interval.Sample(rng)) * p.TimeUnit
}
