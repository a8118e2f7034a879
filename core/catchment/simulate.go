package catchment

import "github.com/kilianp07/vann/core/model"

// Simulate runs a copy of m from its initial states over the forcing series
// and returns the discharge series. A nil params keeps the parameters of m.
// The receiver is never modified, so concurrent calls are safe.
func Simulate(m *Model, params model.Params, forcings []model.Forcing) ([]float64, error) {
	run := m.Clone()
	if params != nil {
		if err := run.AssignParams(params); err != nil {
			return nil, err
		}
	}
	q := make([]float64, len(forcings))
	st := run.InitStates()
	for i, f := range forcings {
		st, q[i] = run.Step(st, f)
	}
	return q, nil
}
