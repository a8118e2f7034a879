package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/vann/core/metrics"
	"github.com/kilianp07/vann/infra/mqtt"
	"github.com/kilianp07/vann/infra/store"
)

type Config struct {
	Model       ModelConfig       `json:"model"`
	Filter      FilterConfig      `json:"filter"`
	Calibration CalibrationConfig `json:"calibration"`
	Data        DataConfig        `json:"data"`
	Metrics     metrics.Config    `json:"metrics"`
	Store       store.Config      `json:"store"`
	// MQTT enables the step summary publisher when set.
	MQTT *mqtt.Config `json:"mqtt"`
	Log  LogConfig    `json:"log"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Model.SetDefaults()
	c.Filter.SetDefaults()
	c.Calibration.SetDefaults()
	c.Store.SetDefaults()
	c.Log.SetDefaults()
	if c.MQTT != nil {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.MQTT != nil {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}

// Load reads the configuration at path, applies K_ prefixed environment
// overrides (K_FILTER__MEMBERS=50 sets filter.members) and fills defaults.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides, nested on "__".
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "k_")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
