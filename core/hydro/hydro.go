// Package hydro implements lumped rainfall-runoff models. The input of a
// step is the effective precipitation reaching the soil (rain plus snowmelt)
// and the potential evapotranspiration; the output is catchment discharge in
// mm per time step.
package hydro

import (
	"fmt"

	"github.com/kilianp07/vann/core/model"
)

// Model is a hydrological model variant.
type Model interface {
	model.Component
	Kind() model.HydroKind
	// Clone returns an independent instance with the same parameters.
	Clone() Model
}

// New constructs the hydrological model selected by kind. Empty params
// selects the variant defaults.
func New(kind model.HydroKind, tstep float64, params model.Params) (Model, error) {
	switch kind {
	case model.HydroGr4j:
		return NewGr4j(tstep, params...)
	case model.HydroHbv:
		return NewHbv(tstep, params...)
	}
	return nil, fmt.Errorf("hydro kind %d: %w", kind, model.ErrUnknownKind)
}

func checkTimeStep(tstep float64) error {
	if tstep <= 0 {
		return fmt.Errorf("time step must be positive, got %v", tstep)
	}
	return nil
}

func indexedNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", prefix, i)
	}
	return names
}
