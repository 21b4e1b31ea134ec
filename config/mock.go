package config

import "fmt"

// MockConfig configures the stand-in prediction backend.
type MockConfig struct {
	Address string `json:"address"`
	// RatePerSecond limits POST /predict; zero disables limiting.
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
}

// SetDefaults applies fallback values for optional fields.
func (c *MockConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":5000"
	}
	if c.RatePerSecond > 0 && c.Burst == 0 {
		c.Burst = 1
	}
}

// Validate checks mandatory fields.
func (c MockConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.RatePerSecond < 0 || c.Burst < 0 {
		return fmt.Errorf("rate_per_second and burst must not be negative")
	}
	return nil
}
