package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DataConfig locates the input tables. Both paths may be overridden on the
// command line.
type DataConfig struct {
	Forcing      string `json:"forcing"`
	Observations string `json:"observations"`
}

// LogConfig sets the minimum log severity.
type LogConfig struct {
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level name.
func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("level %q: %w", c.Level, err)
	}
	return nil
}
