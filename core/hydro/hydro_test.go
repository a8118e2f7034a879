package hydro

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/vann/core/model"
)

func TestGr4jGoldenTrace(t *testing.T) {
	m, err := NewGr4j(24, 257.238, 1.012, 88.235, 2.208)
	require.NoError(t, err)

	prec := []float64{0, 10, 0}
	epot := []float64{2, 2, 2}
	want := []float64{0.0, 1.7794880755017278e-05, 8.286863202111435e-05}

	st := m.InitStates()
	for i := range prec {
		var q float64
		st, q = m.Step(st, model.Forcing{Prec: prec[i], Epot: epot[i]})
		assert.InDelta(t, want[i], q, 1e-6, "step %d", i)
		assert.InDelta(t, want[i], q, 1e-12, "step %d", i)
	}
	assert.InDelta(t, 7.875914280076809, st[0], 1e-9)
	assert.InDelta(t, 0.0018119432299703677, st[1], 1e-12)
}

func TestZeroForcingBaseline(t *testing.T) {
	for _, kind := range []model.HydroKind{model.HydroGr4j, model.HydroHbv} {
		for _, tstep := range []float64{24, 1} {
			m, err := New(kind, tstep, nil)
			require.NoError(t, err)
			st, q := m.Step(m.InitStates(), model.Forcing{})
			assert.Equal(t, 0.0, q, "%s tstep %v", kind, tstep)
			for _, v := range st {
				assert.Equal(t, 0.0, v)
			}
		}
	}
}

func TestUnitHydrographsConserveVolume(t *testing.T) {
	for _, x4 := range []float64{0.5, 1, 2.208, 7.3, 10} {
		ord1, ord2 := gr4jOrdinates(x4, 10, 20)
		assert.InDelta(t, 1, floats.Sum(ord1), 1e-12, "uh1 x4=%v", x4)
		assert.InDelta(t, 1, floats.Sum(ord2), 1e-12, "uh2 x4=%v", x4)
	}
	for _, mb := range []float64{1, 2.5, 7} {
		w := triangularWeights(mb, 7)
		assert.InDelta(t, 1, floats.Sum(w), 1e-12, "maxbas=%v", mb)
		for _, v := range w {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestStateDimensionFixed(t *testing.T) {
	m, err := NewGr4j(24)
	require.NoError(t, err)
	n := len(m.InitStates())
	assert.Equal(t, n, len(m.StateNames()))
	require.NoError(t, m.AssignParams(model.Params{300, 0, 100, 9.9}))
	assert.Equal(t, n, len(m.InitStates()))

	h, err := NewHbv(3)
	require.NoError(t, err)
	assert.Equal(t, len(h.StateNames()), len(h.InitStates()))
	assert.Equal(t, 3+56, len(h.InitStates()))
}

func TestAssignParamsCount(t *testing.T) {
	g, err := NewGr4j(24)
	require.NoError(t, err)
	assert.ErrorIs(t, g.AssignParams(model.Params{1, 2, 3}), model.ErrInvalidParameterCount)

	_, err = NewHbv(24, 1, 2)
	assert.ErrorIs(t, err, model.ErrInvalidParameterCount)

	_, err = New(model.HydroKind(9), 24, nil)
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestAssignParamsClampsToRange(t *testing.T) {
	g, err := NewGr4j(24)
	require.NoError(t, err)
	require.NoError(t, g.AssignParams(model.Params{0, 50, -4, 40}))
	assert.Equal(t, model.Params{1, 10, 1, 10}, g.Params())

	st := g.InitStates()
	for i := 0; i < 10; i++ {
		var q float64
		st, q = g.Step(st, model.Forcing{Prec: 25, Epot: 1})
		assert.False(t, math.IsNaN(q), "step %d", i)
	}

	h, err := NewHbv(24, 0, 0, 0, -1, -1, 0, 0, 0, 0)
	require.NoError(t, err)
	for i, b := range h.ParamRange() {
		assert.Equal(t, b.Min, h.Params()[i])
	}
}

func TestHbvWaterBalance(t *testing.T) {
	m, err := NewHbv(24)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(3, 5))
	st := m.InitStates()
	var in, out float64
	for i := 0; i < 200; i++ {
		p := 0.0
		if rng.Float64() < 0.4 {
			p = rng.Float64() * 40
		}
		in += p
		var q float64
		st, q = m.Step(st, model.Forcing{Prec: p})
		out += q
	}
	stored := st[hbvSM] + st[hbvSUZ] + st[hbvSLZ] + floats.Sum(st[hbvRouting+1:])
	assert.InDelta(t, in, out+stored, 1e-8)
}

func TestClampRespectsCapacities(t *testing.T) {
	g, err := NewGr4j(24, 100, 0, 50, 2)
	require.NoError(t, err)
	st := g.InitStates()
	st[0], st[1] = 150, -3
	g.Clamp(st)
	assert.Equal(t, 100.0, st[0])
	assert.Equal(t, 0.0, st[1])

	h, err := NewHbv(24)
	require.NoError(t, err)
	hs := h.InitStates()
	hs[hbvSM] = 1e6
	h.Clamp(hs)
	assert.Equal(t, 200.0, hs[hbvSM])
}

func TestHydroStatesNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 19))
	for _, kind := range []model.HydroKind{model.HydroGr4j, model.HydroHbv} {
		for _, tstep := range []float64{24, 6} {
			m, err := New(kind, tstep, nil)
			require.NoError(t, err)
			for trial := 0; trial < 50; trial++ {
				bounds := m.ParamRange()
				p := make(model.Params, len(bounds))
				for i, b := range bounds {
					p[i] = b.Min + rng.Float64()*(b.Max-b.Min)
				}
				require.NoError(t, m.AssignParams(p))
				st := m.InitStates()
				for step := 0; step < 100; step++ {
					f := model.Forcing{Epot: rng.Float64() * 6}
					if rng.Float64() < 0.5 {
						f.Prec = rng.ExpFloat64() * 15
					}
					var q float64
					st, q = m.Step(st, f)
					require.GreaterOrEqual(t, q, 0.0)
					for i, v := range st {
						require.GreaterOrEqualf(t, v, 0.0, "%s params %v state %d", kind, p, i)
					}
				}
			}
		}
	}
}
