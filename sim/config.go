package sim

import (
	"fmt"
	"math"
	"time"
)

// KitchenConfig describes the shared pool of units and buffers.
type KitchenConfig struct {
	UnitCapacities   []float64     // one entry per cooking unit, in scan order (at least one)
	BufferCapacities []float64     // one entry per overflow buffer, in scan order (may be empty)
	Ordering         OrderingMode  // outbound ordering for every line ("" = strict)
	IdlePoll         time.Duration // scheduler idle wait (0 = DefaultIdlePoll)
}

// Validate checks the configuration. Every error wraps ErrConfigurationInvalid.
func (c KitchenConfig) Validate() error {
	if len(c.UnitCapacities) == 0 {
		return fmt.Errorf("%w: at least one unit is required", ErrConfigurationInvalid)
	}
	for i, capacity := range c.UnitCapacities {
		if err := validCapacity(capacity); err != nil {
			return fmt.Errorf("%w: unit %d: %v", ErrConfigurationInvalid, i, err)
		}
	}
	for i, capacity := range c.BufferCapacities {
		if err := validCapacity(capacity); err != nil {
			return fmt.Errorf("%w: buffer %d: %v", ErrConfigurationInvalid, i, err)
		}
	}
	if !ValidOrderingModes[c.Ordering] {
		return fmt.Errorf("%w: unknown ordering %q", ErrConfigurationInvalid, c.Ordering)
	}
	if c.IdlePoll < 0 {
		return fmt.Errorf("%w: idle poll must be non-negative, got %s", ErrConfigurationInvalid, c.IdlePoll)
	}
	return nil
}

// LargestUnit returns the biggest unit capacity, the upper bound on any admissible item size.
func (c KitchenConfig) LargestUnit() float64 {
	largest := 0.0
	for _, capacity := range c.UnitCapacities {
		largest = max(largest, capacity)
	}
	return largest
}

func validCapacity(capacity float64) error {
	if math.IsNaN(capacity) || math.IsInf(capacity, 0) || capacity <= 0 {
		return fmt.Errorf("capacity must be a positive finite number, got %g", capacity)
	}
	return nil
}

// BuildHolders validates cfg and constructs its units and buffers, indexed in config order.
// Nothing is built from an invalid config.
func BuildHolders(cfg KitchenConfig) ([]*Unit, []*Buffer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	units := make([]*Unit, len(cfg.UnitCapacities))
	for i, capacity := range cfg.UnitCapacities {
		units[i] = NewUnit(i, capacity)
	}
	buffers := make([]*Buffer, len(cfg.BufferCapacities))
	for i, capacity := range cfg.BufferCapacities {
		buffers[i] = NewBuffer(i, capacity)
	}
	return units, buffers, nil
}
