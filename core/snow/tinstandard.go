package snow

import (
	"math"

	"github.com/kilianp07/vann/core/model"
)

var (
	tinStandardDefaults = model.Params{0.5, 0.0, 3.0, 1.0, 0.1, 0.05}
	tinStandardRange    = []model.Bound{
		{Min: -3, Max: 3},    // rain/snow phase threshold [C]
		{Min: -3, Max: 3},    // melt threshold [C]
		{Min: 0.1, Max: 10},  // degree-day factor [mm/C/day]
		{Min: 0.5, Max: 2.0}, // snowfall correction factor [-]
		{Min: 0, Max: 0.3},   // liquid water holding capacity [-]
		{Min: 0, Max: 0.2},   // refreezing coefficient [-]
	}
	tinStandardStates = []string{"ice", "liquid"}
)

// TinStandard extends the degree-day approach with a liquid water store
// inside the snowpack and refreezing of that water below the melt threshold.
type TinStandard struct {
	tstep  float64
	tphase float64
	tmelt  float64
	ddf    float64
	pcorr  float64
	whc    float64
	cfr    float64
}

// NewTinStandard creates a TinStandard model with the given time step in
// hours. Parameters are [tphase, tmelt, ddf, pcorr, whc, cfr].
func NewTinStandard(tstep float64, params ...float64) (*TinStandard, error) {
	if err := checkTimeStep(tstep); err != nil {
		return nil, err
	}
	m := &TinStandard{tstep: tstep}
	if err := m.AssignParams(model.Defaults(params, tinStandardDefaults)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TinStandard) Kind() model.SnowKind    { return model.SnowTinStandard }
func (m *TinStandard) TimeStep() float64       { return m.tstep }
func (m *TinStandard) StateNames() []string    { return append([]string(nil), tinStandardStates...) }
func (m *TinStandard) InitStates() model.State { return model.State{0, 0} }
func (m *TinStandard) ParamRange() []model.Bound {
	return append([]model.Bound(nil), tinStandardRange...)
}
func (m *TinStandard) Clamp(st model.State) { st.ClampNonNegative() }
func (m *TinStandard) Clone() Model {
	cp := *m
	return &cp
}

func (m *TinStandard) Params() model.Params {
	return model.Params{m.tphase, m.tmelt, m.ddf, m.pcorr, m.whc, m.cfr}
}

// AssignParams overwrites [tphase, tmelt, ddf, pcorr, whc, cfr], clamped
// to ParamRange.
func (m *TinStandard) AssignParams(p model.Params) error {
	if err := model.CheckParamCount("TinStandard", len(p), len(tinStandardDefaults)); err != nil {
		return err
	}
	p = p.ClampTo(tinStandardRange)
	m.tphase, m.tmelt, m.ddf, m.pcorr, m.whc, m.cfr = p[0], p[1], p[2], p[3], p[4], p[5]
	return nil
}

// Step updates the ice and liquid water stores and returns the water
// leaving the snowpack.
func (m *TinStandard) Step(st model.State, f model.Forcing) (model.State, float64) {
	next := st.Clone()
	next.ClampNonNegative()
	ice, liq := next[0], next[1]
	prec := math.Max(f.Prec, 0)
	dt := model.DayFraction(m.tstep)

	var snowfall, rain float64
	if f.Tair < m.tphase {
		snowfall = m.pcorr * prec
	} else {
		rain = prec
	}

	var melt, refreeze float64
	if f.Tair > m.tmelt {
		melt = math.Min(ice, m.ddf*(f.Tair-m.tmelt)*dt)
	} else {
		refreeze = math.Min(liq, m.cfr*m.ddf*(m.tmelt-f.Tair)*dt)
	}

	ice += snowfall - melt + refreeze
	liq += rain + melt - refreeze

	// water in excess of the holding capacity drains
	out := math.Max(liq-m.whc*ice, 0)
	liq -= out

	next[0], next[1] = ice, liq
	next.ClampNonNegative()
	return next, out
}
