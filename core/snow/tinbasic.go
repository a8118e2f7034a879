package snow

import (
	"math"

	"github.com/kilianp07/vann/core/model"
)

var (
	tinBasicDefaults = model.Params{0.0, 3.69, 1.02}
	tinBasicRange    = []model.Bound{
		{Min: -3, Max: 3},    // threshold temperature [C]
		{Min: 0.1, Max: 10},  // degree-day factor [mm/C/day]
		{Min: 0.5, Max: 2.0}, // snowfall correction factor [-]
	}
	tinBasicStates = []string{"swe"}
)

// TinBasic is a temperature-index model with a constant degree-day factor.
// Precipitation falls as snow below the threshold temperature and melt
// occurs above it.
type TinBasic struct {
	tstep float64
	tth   float64
	ddf   float64
	pcorr float64
}

// NewTinBasic creates a TinBasic model with the given time step in hours.
// Parameters are [tth, ddf, pcorr]; none selects the defaults.
func NewTinBasic(tstep float64, params ...float64) (*TinBasic, error) {
	if err := checkTimeStep(tstep); err != nil {
		return nil, err
	}
	m := &TinBasic{tstep: tstep}
	if err := m.AssignParams(model.Defaults(params, tinBasicDefaults)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TinBasic) Kind() model.SnowKind      { return model.SnowTinBasic }
func (m *TinBasic) TimeStep() float64         { return m.tstep }
func (m *TinBasic) StateNames() []string      { return append([]string(nil), tinBasicStates...) }
func (m *TinBasic) InitStates() model.State   { return model.State{0} }
func (m *TinBasic) ParamRange() []model.Bound { return append([]model.Bound(nil), tinBasicRange...) }
func (m *TinBasic) Params() model.Params      { return model.Params{m.tth, m.ddf, m.pcorr} }
func (m *TinBasic) Clamp(st model.State)      { st.ClampNonNegative() }
func (m *TinBasic) Clone() Model {
	cp := *m
	return &cp
}

// AssignParams overwrites [tth, ddf, pcorr], clamped to ParamRange.
func (m *TinBasic) AssignParams(p model.Params) error {
	if err := model.CheckParamCount("TinBasic", len(p), len(tinBasicDefaults)); err != nil {
		return err
	}
	p = p.ClampTo(tinBasicRange)
	m.tth, m.ddf, m.pcorr = p[0], p[1], p[2]
	return nil
}

// Step accumulates or melts the snowpack and returns rain plus melt.
func (m *TinBasic) Step(st model.State, f model.Forcing) (model.State, float64) {
	next := st.Clone()
	next.ClampNonNegative()
	prec := math.Max(f.Prec, 0)
	dt := model.DayFraction(m.tstep)

	var out float64
	if f.Tair > m.tth {
		melt := math.Min(next[0], m.ddf*(f.Tair-m.tth)*dt)
		next[0] -= melt
		out = prec + melt
	} else {
		next[0] += m.pcorr * prec
	}
	next.ClampNonNegative()
	return next, out
}
