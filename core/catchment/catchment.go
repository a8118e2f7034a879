// Package catchment chains snow models and a hydrological model into one
// state-space system. Each elevation band runs its own snow model; the
// area-weighted band output feeds the hydrological model.
package catchment

import (
	"fmt"
	"math"

	"github.com/kilianp07/vann/core/hydro"
	"github.com/kilianp07/vann/core/model"
	"github.com/kilianp07/vann/core/snow"
)

// FractionTolerance is the allowed deviation of the band fraction sum from one.
const FractionTolerance = 1e-6

// Band pairs a snow model with the fraction of catchment area it covers.
type Band struct {
	Snow     snow.Model
	Fraction float64
}

// Model is the composite snow plus hydrology model of one catchment.
//
// State layout: band 0 snow states, band 1 snow states, ..., hydro states.
type Model struct {
	hydro   hydro.Model
	bands   []Band
	offsets []int
	nState  int
}

// New validates the band fractions and builds the composite model. The
// snow models and the hydrological model must share the same time step.
func New(h hydro.Model, bands ...Band) (*Model, error) {
	if h == nil {
		return nil, fmt.Errorf("hydrological model is required")
	}
	var sum float64
	for i, b := range bands {
		if b.Snow == nil {
			return nil, fmt.Errorf("band %d has no snow model", i)
		}
		if b.Fraction < 0 {
			return nil, fmt.Errorf("band %d fraction %v is negative: %w", i, b.Fraction, model.ErrFractionSum)
		}
		if b.Snow.TimeStep() != h.TimeStep() {
			return nil, fmt.Errorf("band %d time step %v differs from %v", i, b.Snow.TimeStep(), h.TimeStep())
		}
		sum += b.Fraction
	}
	if len(bands) > 0 && math.Abs(sum-1) > FractionTolerance {
		return nil, fmt.Errorf("fractions sum to %v: %w", sum, model.ErrFractionSum)
	}
	m := &Model{hydro: h, bands: append([]Band(nil), bands...)}
	m.layout()
	return m, nil
}

// NewFromKinds builds a composite model with one snow model of the given
// kind per band fraction. Snow parameters are shared by all bands.
func NewFromKinds(sk model.SnowKind, hk model.HydroKind, tstep float64, fractions []float64, snowParams, hydroParams model.Params) (*Model, error) {
	h, err := hydro.New(hk, tstep, hydroParams)
	if err != nil {
		return nil, err
	}
	bands := make([]Band, len(fractions))
	for i, f := range fractions {
		s, err := snow.New(sk, tstep, snowParams)
		if err != nil {
			return nil, err
		}
		bands[i] = Band{Snow: s, Fraction: f}
	}
	return New(h, bands...)
}

func (m *Model) layout() {
	m.offsets = make([]int, len(m.bands)+1)
	n := 0
	for i, b := range m.bands {
		m.offsets[i] = n
		n += len(b.Snow.InitStates())
	}
	m.offsets[len(m.bands)] = n
	m.nState = n + len(m.hydro.InitStates())
}

// Hydro returns the hydrological component.
func (m *Model) Hydro() hydro.Model { return m.hydro }

// Bands returns the elevation bands.
func (m *Model) Bands() []Band { return append([]Band(nil), m.bands...) }

// TimeStep returns the shared time step in hours.
func (m *Model) TimeStep() float64 { return m.hydro.TimeStep() }

// StateNames prefixes every component state with its band or "hydro".
func (m *Model) StateNames() []string {
	names := make([]string, 0, m.nState)
	for i, b := range m.bands {
		for _, n := range b.Snow.StateNames() {
			names = append(names, fmt.Sprintf("band%d.%s", i, n))
		}
	}
	for _, n := range m.hydro.StateNames() {
		names = append(names, "hydro."+n)
	}
	return names
}

// InitStates concatenates the initial states of all components.
func (m *Model) InitStates() model.State {
	st := make(model.State, 0, m.nState)
	for _, b := range m.bands {
		st = append(st, b.Snow.InitStates()...)
	}
	return append(st, m.hydro.InitStates()...)
}

// snowParamCount is the number of snow parameters shared by the bands.
func (m *Model) snowParamCount() int {
	if len(m.bands) == 0 {
		return 0
	}
	return len(m.bands[0].Snow.Params())
}

// ParamRange returns the snow parameter bounds followed by the hydrological ones.
func (m *Model) ParamRange() []model.Bound {
	var r []model.Bound
	if len(m.bands) > 0 {
		r = append(r, m.bands[0].Snow.ParamRange()...)
	}
	return append(r, m.hydro.ParamRange()...)
}

// Params returns the snow parameters of the first band followed by the
// hydrological parameters.
func (m *Model) Params() model.Params {
	var p model.Params
	if len(m.bands) > 0 {
		p = append(p, m.bands[0].Snow.Params()...)
	}
	return append(p, m.hydro.Params()...)
}

// AssignParams splits p into the shared snow parameters and the
// hydrological parameters.
func (m *Model) AssignParams(p model.Params) error {
	ns := m.snowParamCount()
	want := ns + len(m.hydro.Params())
	if err := model.CheckParamCount("composite model", len(p), want); err != nil {
		return err
	}
	for _, b := range m.bands {
		if err := b.Snow.AssignParams(p[:ns]); err != nil {
			return err
		}
	}
	return m.hydro.AssignParams(p[ns:])
}

// Clamp enforces the physical bounds of every component.
func (m *Model) Clamp(st model.State) {
	for i, b := range m.bands {
		b.Snow.Clamp(st[m.offsets[i]:m.offsets[i+1]])
	}
	m.hydro.Clamp(st[m.offsets[len(m.bands)]:])
}

// Step runs every band's snow model, area-weights their output and feeds
// it with the potential evapotranspiration into the hydrological model.
// Without bands precipitation goes straight to the hydrological model.
func (m *Model) Step(st model.State, f model.Forcing) (model.State, float64) {
	next := make(model.State, 0, m.nState)
	effective := f.Prec
	if len(m.bands) > 0 {
		effective = 0
		for i, b := range m.bands {
			prec, tair := f.Band(i)
			bs, out := b.Snow.Step(st[m.offsets[i]:m.offsets[i+1]], model.Forcing{Prec: prec, Tair: tair})
			next = append(next, bs...)
			effective += b.Fraction * out
		}
	}
	hs, q := m.hydro.Step(st[m.offsets[len(m.bands)]:], model.Forcing{Prec: effective, Tair: f.Tair, Epot: f.Epot})
	return append(next, hs...), q
}

// Clone returns an independent deep copy of the model.
func (m *Model) Clone() *Model {
	cp := &Model{hydro: m.hydro.Clone(), bands: make([]Band, len(m.bands))}
	for i, b := range m.bands {
		cp.bands[i] = Band{Snow: b.Snow.Clone(), Fraction: b.Fraction}
	}
	cp.layout()
	return cp
}

var _ model.Component = (*Model)(nil)
