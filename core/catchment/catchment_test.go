package catchment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vann/core/hydro"
	"github.com/kilianp07/vann/core/model"
	"github.com/kilianp07/vann/core/snow"
)

func newBands(t *testing.T, fractions ...float64) []Band {
	t.Helper()
	bands := make([]Band, len(fractions))
	for i, f := range fractions {
		s, err := snow.NewTinBasic(24)
		require.NoError(t, err)
		bands[i] = Band{Snow: s, Fraction: f}
	}
	return bands
}

func TestNewFractionSum(t *testing.T) {
	h, err := hydro.NewGr4j(24)
	require.NoError(t, err)

	_, err = New(h, newBands(t, 0.5, 0.5)...)
	assert.NoError(t, err)

	_, err = New(h, newBands(t, 0.5, 0.6)...)
	assert.ErrorIs(t, err, model.ErrFractionSum)

	_, err = New(h, newBands(t, 0.3, 0.3, 0.4+5e-7)...)
	assert.NoError(t, err)

	_, err = New(h, newBands(t, 1.5, -0.5)...)
	assert.ErrorIs(t, err, model.ErrFractionSum)
}

func TestNewRejectsMixedTimeSteps(t *testing.T) {
	h, err := hydro.NewGr4j(24)
	require.NoError(t, err)
	s, err := snow.NewTinBasic(6)
	require.NoError(t, err)
	_, err = New(h, Band{Snow: s, Fraction: 1})
	assert.Error(t, err)
}

func TestStepWeightsBands(t *testing.T) {
	m, err := NewFromKinds(model.SnowTinBasic, model.HydroGr4j, 24, []float64{0.25, 0.75}, model.Params{0, 4, 1}, nil)
	require.NoError(t, err)

	// cold upper band stores snow, warm lower band passes rain
	f := model.Forcing{Prec: 8, BandTair: []float64{5, -5}}
	st, _ := m.Step(m.InitStates(), f)
	assert.Equal(t, 0.0, st[0])
	assert.Equal(t, 8.0, st[1])

	ref, err := hydro.NewGr4j(24)
	require.NoError(t, err)
	wantState, wantQ := ref.Step(ref.InitStates(), model.Forcing{Prec: 0.25 * 8})
	gotState, gotQ := m.Step(m.InitStates(), f)
	assert.InDelta(t, wantQ, gotQ, 1e-12)
	assert.Equal(t, []float64(wantState), []float64(gotState[2:]))
}

func TestParamsRoundTrip(t *testing.T) {
	m, err := NewFromKinds(model.SnowTinStandard, model.HydroHbv, 24, []float64{0.5, 0.5}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, m.Params(), 6+9)
	assert.Len(t, m.ParamRange(), 6+9)
	assert.Len(t, m.StateNames(), len(m.InitStates()))
	assert.Equal(t, "band1.liquid", m.StateNames()[3])

	p := m.Params()
	p[2] = 5.5
	p[6] = 300
	require.NoError(t, m.AssignParams(p))
	for _, b := range m.Bands() {
		assert.Equal(t, 5.5, b.Snow.Params()[2])
	}
	assert.Equal(t, 300.0, m.Hydro().Params()[0])

	assert.ErrorIs(t, m.AssignParams(p[:4]), model.ErrInvalidParameterCount)
}

func TestCloneIsIndependent(t *testing.T) {
	m, err := NewFromKinds(model.SnowTinBasic, model.HydroGr4j, 24, []float64{1}, nil, nil)
	require.NoError(t, err)
	cp := m.Clone()
	p := cp.Params()
	p[0] = 2
	require.NoError(t, cp.AssignParams(p))
	assert.Equal(t, 0.0, m.Params()[0])
	assert.Equal(t, 2.0, cp.Params()[0])
}

func TestSimulateGr4jWithoutSnow(t *testing.T) {
	h, err := hydro.NewGr4j(24)
	require.NoError(t, err)
	m, err := New(h)
	require.NoError(t, err)

	forcings, err := model.NewForcings([]float64{0, 10, 0}, nil, []float64{2, 2, 2})
	require.NoError(t, err)
	q, err := Simulate(m, model.Params{257.238, 1.012, 88.235, 2.208}, forcings)
	require.NoError(t, err)
	want := []float64{0.0, 1.7794880755017278e-05, 8.286863202111435e-05}
	for i := range want {
		assert.InDelta(t, want[i], q[i], 1e-6)
	}

	_, err = Simulate(m, model.Params{1}, forcings)
	assert.ErrorIs(t, err, model.ErrInvalidParameterCount)
}

func TestSimulateDoesNotMutateModel(t *testing.T) {
	m, err := NewFromKinds(model.SnowTinBasic, model.HydroHbv, 24, []float64{1}, nil, nil)
	require.NoError(t, err)
	before := m.Params()
	p := m.Params()
	p[1] = 7
	_, err = Simulate(m, p, make([]model.Forcing, 5))
	require.NoError(t, err)
	assert.Equal(t, before, m.Params())
}
