package calib

import (
	"fmt"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/model"
)

// Objective scores a parameter vector of the composite model against
// observed discharge. Score builds a fresh model per call and never mutates
// the Objective, so concurrent calls are safe.
type Objective struct {
	Snow      model.SnowKind
	Hydro     model.HydroKind
	TimeStep  float64
	Fractions []float64
	Forcings  []model.Forcing
	Obs       []float64
	Warmup    int
	Metric    Metric
}

// Validate checks that the objective can be evaluated.
func (o Objective) Validate() error {
	if err := model.CheckAligned(o.Forcings, o.Obs); err != nil {
		return err
	}
	if o.Warmup < 0 || o.Warmup >= len(o.Obs) {
		return fmt.Errorf("warmup %d outside series of %d steps", o.Warmup, len(o.Obs))
	}
	if _, err := ParseMetric(string(o.Metric)); err != nil {
		return err
	}
	_, err := o.template()
	return err
}

func (o Objective) template() (*catchment.Model, error) {
	return catchment.NewFromKinds(o.Snow, o.Hydro, o.TimeStep, o.Fractions, nil, nil)
}

// Bounds returns the admissible interval of every calibrated parameter:
// snow parameters first, then hydrological ones.
func (o Objective) Bounds() ([]model.Bound, error) {
	m, err := o.template()
	if err != nil {
		return nil, err
	}
	return m.ParamRange(), nil
}

// Defaults returns the default parameter vector of the model.
func (o Objective) Defaults() (model.Params, error) {
	m, err := o.template()
	if err != nil {
		return nil, err
	}
	return m.Params(), nil
}

// Simulate runs the model with params over the forcing series.
func (o Objective) Simulate(params model.Params) ([]float64, error) {
	m, err := o.template()
	if err != nil {
		return nil, err
	}
	return catchment.Simulate(m, params, o.Forcings)
}

// Score returns the metric value for params over the post-warmup window.
func (o Objective) Score(params model.Params) (float64, error) {
	q, err := o.Simulate(params)
	if err != nil {
		return 0, err
	}
	return Evaluate(o.Metric, q, o.Obs, o.Warmup)
}
