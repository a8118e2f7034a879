package config

import (
	"github.com/kilianp07/vann/core/assim"
	"github.com/kilianp07/vann/core/model"
)

// FilterConfig selects the assimilation scheme and its ensemble settings.
type FilterConfig struct {
	Kind         string `json:"kind"`
	assim.Config `json:",squash"`
}

// SetDefaults selects the EnKF and fills ensemble defaults.
func (c *FilterConfig) SetDefaults() {
	if c.Kind == "" {
		c.Kind = model.FilterEnKF.String()
	}
	c.Config.SetDefaults()
}

// FilterKind resolves the configured scheme.
func (c FilterConfig) FilterKind() (model.FilterKind, error) {
	return model.ParseFilterKind(c.Kind)
}

// Validate checks the scheme name and ensemble settings.
func (c FilterConfig) Validate() error {
	kind, err := c.FilterKind()
	if err != nil {
		return err
	}
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if kind == model.FilterParticle {
		return c.ObsError.CheckLikelihood()
	}
	return nil
}
