package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foodfactory/cookstage/sim"
)

// KitchenFile is the on-disk kitchen description.
// Every section must be listed here: decoding uses KnownFields(true), so a typo is an error.
type KitchenFile struct {
	Units      []float64       `yaml:"units"`
	Buffers    []float64       `yaml:"buffers"`
	TimeUnit   string          `yaml:"time_unit"` // Go duration, e.g. "1s" or "50ms"
	Ordering   string          `yaml:"ordering"`  // "strict" (default) or "relaxed"
	IdlePoll   string          `yaml:"idle_poll"`
	Production *ProductionFile `yaml:"production"`
}

// ProductionFile overrides the stock production ranges. Omitted ranges keep their defaults.
type ProductionFile struct {
	Size     *sim.IntRange `yaml:"size"`
	CookTime *sim.IntRange `yaml:"cook_time"`
	Interval *sim.IntRange `yaml:"interval"`
}

// RunConfig is the fully resolved configuration of one kitchen run.
type RunConfig struct {
	Kitchen sim.KitchenConfig
	Policy  *sim.UniformPolicy
}

// loadKitchenFile parses a kitchen YAML file with strict field checking.
func loadKitchenFile(path string) (KitchenFile, error) {
	var kf KitchenFile
	data, err := os.ReadFile(path)
	if err != nil {
		return kf, fmt.Errorf("read kitchen config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&kf); err != nil {
		return kf, fmt.Errorf("%w: parse kitchen config %s: %v", sim.ErrConfigurationInvalid, path, err)
	}
	return kf, nil
}

// resolve turns the file into a RunConfig. Empty fields take the defaults given.
func (kf KitchenFile) resolve(defaultTimeUnit time.Duration) (RunConfig, error) {
	rc := RunConfig{
		Kitchen: sim.KitchenConfig{
			UnitCapacities:   kf.Units,
			BufferCapacities: kf.Buffers,
			Ordering:         sim.OrderingMode(kf.Ordering),
		},
	}

	timeUnit := defaultTimeUnit
	if kf.TimeUnit != "" {
		d, err := time.ParseDuration(kf.TimeUnit)
		if err != nil {
			return rc, fmt.Errorf("%w: time_unit: %v", sim.ErrConfigurationInvalid, err)
		}
		timeUnit = d
	}
	if kf.IdlePoll != "" {
		d, err := time.ParseDuration(kf.IdlePoll)
		if err != nil {
			return rc, fmt.Errorf("%w: idle_poll: %v", sim.ErrConfigurationInvalid, err)
		}
		rc.Kitchen.IdlePoll = d
	}

	rc.Policy = sim.DefaultUniformPolicy(timeUnit)
	if p := kf.Production; p != nil {
		if p.Size != nil {
			rc.Policy.Size = *p.Size
		}
		if p.CookTime != nil {
			rc.Policy.CookTime = *p.CookTime
		}
		if p.Interval != nil {
			rc.Policy.Interval = *p.Interval
		}
	}
	return rc, nil
}

// Validate checks the kitchen layout, the production policy, and that every size the policy
// can draw fits the largest unit. A policy that could outgrow the kitchen would block lines
// at runtime, so it is refused at startup.
func (rc RunConfig) Validate() error {
	if err := rc.Kitchen.Validate(); err != nil {
		return err
	}
	if err := rc.Policy.Validate(); err != nil {
		return err
	}
	if upper, largest := float64(rc.Policy.Size.Upper()), rc.Kitchen.LargestUnit(); upper > largest {
		return fmt.Errorf("%w: production size can reach %g but the largest unit holds %g",
			sim.ErrConfigurationInvalid, upper, largest)
	}
	return nil
}
