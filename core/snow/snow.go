// Package snow implements temperature-index snow accumulation and melt
// models. Each instance represents one elevation band; its output is the
// rain plus snowmelt released from the band during a time step.
package snow

import (
	"fmt"

	"github.com/kilianp07/vann/core/model"
)

// Model is a snow model variant.
type Model interface {
	model.Component
	Kind() model.SnowKind
	// Clone returns an independent instance with the same parameters.
	Clone() Model
}

// New constructs the snow model selected by kind. Empty params selects the
// variant defaults.
func New(kind model.SnowKind, tstep float64, params model.Params) (Model, error) {
	switch kind {
	case model.SnowTinBasic:
		return NewTinBasic(tstep, params...)
	case model.SnowTinStandard:
		return NewTinStandard(tstep, params...)
	}
	return nil, fmt.Errorf("snow kind %d: %w", kind, model.ErrUnknownKind)
}

func checkTimeStep(tstep float64) error {
	if tstep <= 0 {
		return fmt.Errorf("time step must be positive, got %v", tstep)
	}
	return nil
}
