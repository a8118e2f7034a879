package assim

import (
	"context"
	"fmt"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/model"
)

// RunFilter assimilates obs over the whole forcing series and returns one
// result per time step. Missing observations (NaN) skip the analysis for
// that step. The context is checked between steps.
func RunFilter(ctx context.Context, kind model.FilterKind, m *catchment.Model, cfg Config, forcings []model.Forcing, obs []float64, opts ...Option) ([]StepResult, error) {
	if err := model.CheckAligned(forcings, obs); err != nil {
		return nil, err
	}
	f, err := New(kind, m, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return Drive(ctx, f, forcings, obs)
}

// Drive feeds the series to an existing filter.
func Drive(ctx context.Context, f Filter, forcings []model.Forcing, obs []float64) ([]StepResult, error) {
	if err := model.CheckAligned(forcings, obs); err != nil {
		return nil, err
	}
	out := make([]StepResult, 0, len(forcings))
	for t := range forcings {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := f.Step(forcings[t], obs[t])
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.Kind(), err)
		}
		out = append(out, res)
	}
	return out, nil
}

// RunConfig describes a complete assimilation run from model kinds.
type RunConfig struct {
	Filter      model.FilterKind
	Snow        model.SnowKind
	Hydro       model.HydroKind
	TimeStep    float64
	Fractions   []float64
	SnowParams  model.Params
	HydroParams model.Params
	Ensemble    Config
}

// Run builds the composite model described by rc and runs the filter.
func Run(ctx context.Context, rc RunConfig, forcings []model.Forcing, obs []float64, opts ...Option) ([]StepResult, error) {
	m, err := catchment.NewFromKinds(rc.Snow, rc.Hydro, rc.TimeStep, rc.Fractions, rc.SnowParams, rc.HydroParams)
	if err != nil {
		return nil, err
	}
	return RunFilter(ctx, rc.Filter, m, rc.Ensemble, forcings, obs, opts...)
}

// Means extracts the analysis mean of every step.
func Means(results []StepResult) []float64 {
	out := make([]float64, len(results))
	for i, r := range results {
		out[i] = r.Analysis.Mean
	}
	return out
}
