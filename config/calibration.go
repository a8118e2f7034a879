package config

import (
	"fmt"

	"github.com/kilianp07/vann/core/calib"
)

// CalibrationConfig controls the parameter search.
type CalibrationConfig struct {
	// Warmup is the number of leading steps excluded from the score.
	Warmup         int     `json:"warmup"`
	Metric         string  `json:"metric"`
	MaxEvaluations int     `json:"max_evaluations"`
	Tolerance      float64 `json:"tolerance"`
}

// SetDefaults applies sane defaults.
func (c *CalibrationConfig) SetDefaults() {
	if c.Metric == "" {
		c.Metric = string(calib.MetricNSE)
	}
	if c.MaxEvaluations == 0 {
		c.MaxEvaluations = 2000
	}
}

// Validate checks mandatory fields.
func (c CalibrationConfig) Validate() error {
	if c.Warmup < 0 {
		return fmt.Errorf("warmup must be non-negative, got %d", c.Warmup)
	}
	if c.MaxEvaluations < 1 {
		return fmt.Errorf("max_evaluations must be positive, got %d", c.MaxEvaluations)
	}
	_, err := calib.ParseMetric(c.Metric)
	return err
}

// Settings converts the section into optimizer settings.
func (c CalibrationConfig) Settings() calib.Settings {
	return calib.Settings{MaxEvaluations: c.MaxEvaluations, Tolerance: c.Tolerance}
}
