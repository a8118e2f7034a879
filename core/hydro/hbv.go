package hydro

import (
	"math"

	"github.com/kilianp07/vann/core/model"
)

var (
	hbvDefaults = model.Params{200, 0.7, 2.0, 1.5, 20, 0.2, 0.1, 0.05, 2.5}
	hbvRange    = []model.Bound{
		{Min: 50, Max: 700},     // fc field capacity [mm]
		{Min: 0.3, Max: 1},      // lp evaporation limit as fraction of fc [-]
		{Min: 1, Max: 6},        // beta recharge shape [-]
		{Min: 0, Max: 6},        // perc percolation rate [mm/day]
		{Min: 0, Max: 100},      // uzl upper zone threshold [mm]
		{Min: 0.05, Max: 0.5},   // k0 fast recession [1/day]
		{Min: 0.01, Max: 0.4},   // k1 upper zone recession [1/day]
		{Min: 0.001, Max: 0.15}, // k2 lower zone recession [1/day]
		{Min: 1, Max: 7},        // maxbas transfer base length [days]
	}
)

const (
	hbvSM = iota
	hbvSUZ
	hbvSLZ
	hbvRouting
)

// Hbv is the HBV-light soil moisture and response routine (Seibert and Vis,
// 2012) with a triangular transfer function. Recession coefficients and the
// percolation rate are daily values scaled by the step length.
//
// State layout: [soil moisture, upper zone, lower zone, routing buffer...].
type Hbv struct {
	tstep  float64
	fc     float64
	lp     float64
	beta   float64
	perc   float64
	uzl    float64
	k0     float64
	k1     float64
	k2     float64
	maxbas float64
	n      int
	w      []float64
}

// NewHbv creates an Hbv model with the time step in hours. Parameters are
// [fc, lp, beta, perc, uzl, k0, k1, k2, maxbas]; none selects the defaults.
func NewHbv(tstep float64, params ...float64) (*Hbv, error) {
	if err := checkTimeStep(tstep); err != nil {
		return nil, err
	}
	m := &Hbv{
		tstep: tstep,
		n:     int(math.Ceil(hbvRange[8].Max / model.DayFraction(tstep))),
	}
	if err := m.AssignParams(model.Defaults(params, hbvDefaults)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Hbv) Kind() model.HydroKind { return model.HydroHbv }
func (m *Hbv) TimeStep() float64     { return m.tstep }

func (m *Hbv) Params() model.Params {
	return model.Params{m.fc, m.lp, m.beta, m.perc, m.uzl, m.k0, m.k1, m.k2, m.maxbas}
}

func (m *Hbv) ParamRange() []model.Bound {
	return append([]model.Bound(nil), hbvRange...)
}

func (m *Hbv) StateNames() []string {
	return append([]string{"soil_moisture", "upper_zone", "lower_zone"}, indexedNames("routing", m.n)...)
}

// InitStates returns empty stores.
func (m *Hbv) InitStates() model.State {
	return make(model.State, hbvRouting+m.n)
}

// AssignParams overwrites the nine HBV parameters, clamped to ParamRange,
// and recomputes the transfer function weights.
func (m *Hbv) AssignParams(p model.Params) error {
	if err := model.CheckParamCount("Hbv", len(p), len(hbvDefaults)); err != nil {
		return err
	}
	p = p.ClampTo(hbvRange)
	m.fc, m.lp, m.beta, m.perc, m.uzl = p[0], p[1], p[2], p[3], p[4]
	m.k0, m.k1, m.k2, m.maxbas = p[5], p[6], p[7], p[8]
	m.w = triangularWeights(m.maxbas/model.DayFraction(m.tstep), m.n)
	return nil
}

// Clamp keeps every store non-negative and soil moisture below fc.
func (m *Hbv) Clamp(st model.State) {
	st.ClampNonNegative()
	if st[hbvSM] > m.fc {
		st[hbvSM] = m.fc
	}
}

func (m *Hbv) Clone() Model {
	cp := *m
	cp.w = append([]float64(nil), m.w...)
	return &cp
}

// Step runs the soil routine, the two response reservoirs and the
// transfer function for one time step.
func (m *Hbv) Step(st model.State, f model.Forcing) (model.State, float64) {
	next := st.Clone()
	m.Clamp(next)
	prec := math.Max(f.Prec, 0)
	epot := math.Max(f.Epot, 0)
	dt := model.DayFraction(m.tstep)

	sm, suz, slz := next[hbvSM], next[hbvSUZ], next[hbvSLZ]

	var recharge float64
	if prec > 0 {
		recharge = math.Min(prec, prec*math.Pow(sm/m.fc, m.beta))
		sm += prec - recharge
		if sm > m.fc {
			recharge += sm - m.fc
			sm = m.fc
		}
	}
	ea := math.Min(sm, epot*math.Min(1, sm/(m.lp*m.fc)))
	sm -= ea

	suz += recharge
	perc := math.Min(suz, m.perc*dt)
	suz -= perc
	slz += perc

	q0 := rate(m.k0, dt) * math.Max(suz-m.uzl, 0)
	suz -= q0
	q1 := rate(m.k1, dt) * suz
	suz -= q1
	q2 := rate(m.k2, dt) * slz
	slz -= q2

	buf := next[hbvRouting:]
	convolve(buf, m.w, q0+q1+q2)

	next[hbvSM], next[hbvSUZ], next[hbvSLZ] = sm, suz, slz
	next.ClampNonNegative()
	return next, buf[0]
}

func rate(k, dt float64) float64 { return math.Min(k*dt, 1) }
