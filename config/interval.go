package config

import (
	"fmt"

	"github.com/kilianp07/housepredict/core/prediction"
)

// IntervalConfig holds the factors used when the service omits bounds.
type IntervalConfig struct {
	LowerFactor float64 `json:"lower_factor"`
	UpperFactor float64 `json:"upper_factor"`
}

// SetDefaults applies the ±15% band.
func (c *IntervalConfig) SetDefaults() {
	if c.LowerFactor == 0 {
		c.LowerFactor = prediction.DefaultIntervalPolicy.LowerFactor
	}
	if c.UpperFactor == 0 {
		c.UpperFactor = prediction.DefaultIntervalPolicy.UpperFactor
	}
}

// Validate requires 0 < lower <= 1 <= upper.
func (c IntervalConfig) Validate() error {
	if c.LowerFactor <= 0 || c.LowerFactor > 1 {
		return fmt.Errorf("lower_factor must be in (0, 1], got %v", c.LowerFactor)
	}
	if c.UpperFactor < 1 {
		return fmt.Errorf("upper_factor must be >= 1, got %v", c.UpperFactor)
	}
	return nil
}

// Policy converts the section to a prediction.IntervalPolicy.
func (c IntervalConfig) Policy() prediction.IntervalPolicy {
	return prediction.IntervalPolicy{LowerFactor: c.LowerFactor, UpperFactor: c.UpperFactor}
}
