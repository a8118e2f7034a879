package hydro

import (
	"math"

	"github.com/kilianp07/vann/core/model"
)

var (
	gr4jDefaults = model.Params{257.238, 1.012, 88.235, 2.208}
	gr4jRange    = []model.Bound{
		{Min: 1, Max: 3000}, // x1 production store capacity [mm]
		{Min: -10, Max: 10}, // x2 groundwater exchange coefficient [mm/step]
		{Min: 1, Max: 1000}, // x3 routing store capacity [mm]
		{Min: 0.5, Max: 10}, // x4 unit hydrograph base time [days]
	}
)

const (
	gr4jProd = iota
	gr4jRout
	gr4jUH
)

// Gr4j is the four-parameter daily lumped model of Perrin et al. (2003),
// generalised to sub-daily steps by expressing x4 in days and scaling the
// percolation constant with the step length.
//
// State layout: [production store, routing store, UH1 ordinates..., UH2 ordinates...].
type Gr4j struct {
	tstep  float64
	x1     float64
	x2     float64
	x3     float64
	x4     float64
	beta   float64
	n1, n2 int
	ord1   []float64
	ord2   []float64
}

// NewGr4j creates a Gr4j model with the time step in hours. Parameters are
// [x1, x2, x3, x4]; none selects the defaults.
func NewGr4j(tstep float64, params ...float64) (*Gr4j, error) {
	if err := checkTimeStep(tstep); err != nil {
		return nil, err
	}
	dt := model.DayFraction(tstep)
	m := &Gr4j{
		tstep: tstep,
		beta:  9.0 / 4.0 * math.Pow(1/dt, 0.25),
		n1:    int(math.Ceil(gr4jRange[3].Max / dt)),
		n2:    int(math.Ceil(2 * gr4jRange[3].Max / dt)),
	}
	if err := m.AssignParams(model.Defaults(params, gr4jDefaults)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Gr4j) Kind() model.HydroKind { return model.HydroGr4j }
func (m *Gr4j) TimeStep() float64     { return m.tstep }
func (m *Gr4j) Params() model.Params  { return model.Params{m.x1, m.x2, m.x3, m.x4} }

func (m *Gr4j) ParamRange() []model.Bound {
	return append([]model.Bound(nil), gr4jRange...)
}

func (m *Gr4j) StateNames() []string {
	names := []string{"production", "routing"}
	names = append(names, indexedNames("uh1", m.n1)...)
	return append(names, indexedNames("uh2", m.n2)...)
}

// InitStates returns empty stores.
func (m *Gr4j) InitStates() model.State {
	return make(model.State, gr4jUH+m.n1+m.n2)
}

// AssignParams overwrites [x1, x2, x3, x4], clamped to ParamRange, and
// recomputes the unit hydrograph ordinates.
func (m *Gr4j) AssignParams(p model.Params) error {
	if err := model.CheckParamCount("Gr4j", len(p), len(gr4jDefaults)); err != nil {
		return err
	}
	p = p.ClampTo(gr4jRange)
	m.x1, m.x2, m.x3, m.x4 = p[0], p[1], p[2], p[3]
	m.ord1, m.ord2 = gr4jOrdinates(m.x4/model.DayFraction(m.tstep), m.n1, m.n2)
	return nil
}

// Clamp keeps every store non-negative and the production store below x1.
func (m *Gr4j) Clamp(st model.State) {
	st.ClampNonNegative()
	if st[gr4jProd] > m.x1 {
		st[gr4jProd] = m.x1
	}
}

func (m *Gr4j) Clone() Model {
	cp := *m
	cp.ord1 = append([]float64(nil), m.ord1...)
	cp.ord2 = append([]float64(nil), m.ord2...)
	return &cp
}

// Step runs the production function, the unit hydrograph convolution and
// the routing store for one time step.
func (m *Gr4j) Step(st model.State, f model.Forcing) (model.State, float64) {
	next := st.Clone()
	m.Clamp(next)
	prec := math.Max(f.Prec, 0)
	epot := math.Max(f.Epot, 0)

	s := next[gr4jProd]
	var pr float64
	if prec > epot {
		ws := math.Min((prec-epot)/m.x1, 13)
		tws := math.Tanh(ws)
		sr := s / m.x1
		ps := m.x1 * (1 - sr*sr) * tws / (1 + sr*tws)
		pr = prec - epot - ps
		s += ps
	} else {
		ws := math.Min((epot-prec)/m.x1, 13)
		tws := math.Tanh(ws)
		sr := s / m.x1
		er := s * (2 - sr) * tws / (1 + (1-sr)*tws)
		s -= er
	}
	s = math.Max(s, 0)

	perc := s * (1 - math.Pow(1+math.Pow(s/(m.beta*m.x1), 4), -0.25))
	s -= perc
	pr += perc

	uh1 := next[gr4jUH : gr4jUH+m.n1]
	uh2 := next[gr4jUH+m.n1:]
	convolve(uh1, m.ord1, 0.9*pr)
	convolve(uh2, m.ord2, 0.1*pr)

	r := next[gr4jRout]
	exch := m.x2 * math.Pow(r/m.x3, 3.5)
	r = math.Max(0, r+uh1[0]+exch)
	qr := r * (1 - math.Pow(1+math.Pow(r/m.x3, 4), -0.25))
	r -= qr
	qd := math.Max(0, uh2[0]+exch)

	next[gr4jProd] = s
	next[gr4jRout] = r
	next.ClampNonNegative()
	return next, qr + qd
}
