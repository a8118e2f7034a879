package snow

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vann/core/model"
)

func TestNewSelectsVariant(t *testing.T) {
	m, err := New(model.SnowTinBasic, 24, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SnowTinBasic, m.Kind())
	assert.Equal(t, model.Params{0.0, 3.69, 1.02}, m.Params())

	m, err = New(model.SnowTinStandard, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SnowTinStandard, m.Kind())
	assert.Equal(t, 3.0, m.TimeStep())
	assert.Len(t, m.InitStates(), len(m.StateNames()))

	_, err = New(model.SnowKind(42), 24, nil)
	assert.ErrorIs(t, err, model.ErrUnknownKind)

	_, err = NewTinBasic(0)
	assert.Error(t, err)
}

func TestAssignParamsCount(t *testing.T) {
	tb, err := NewTinBasic(24)
	require.NoError(t, err)
	assert.ErrorIs(t, tb.AssignParams(model.Params{1, 2}), model.ErrInvalidParameterCount)
	assert.Equal(t, model.Params{0.0, 3.69, 1.02}, tb.Params(), "failed assignment must not change parameters")

	require.NoError(t, tb.AssignParams(model.Params{0.5, 4.0, 1.2}))
	assert.Equal(t, model.Params{0.5, 4.0, 1.2}, tb.Params())
	require.NoError(t, tb.AssignParams(model.Params{-9, 0, 5}))
	assert.Equal(t, model.Params{-3, 0.1, 2}, tb.Params())

	ts, err := NewTinStandard(24)
	require.NoError(t, err)
	assert.ErrorIs(t, ts.AssignParams(model.Params{1}), model.ErrInvalidParameterCount)
	_, err = NewTinStandard(24, 1, 2, 3)
	assert.ErrorIs(t, err, model.ErrInvalidParameterCount)
}

func TestTinBasicAccumulationAndMelt(t *testing.T) {
	m, err := NewTinBasic(24, 0.0, 3.69, 1.02)
	require.NoError(t, err)

	st := m.InitStates()
	st, out := m.Step(st, model.Forcing{Prec: 10, Tair: -5})
	assert.InDelta(t, 10.2, st[0], 1e-12)
	assert.Equal(t, 0.0, out)

	prev := st.Clone()
	st2, out := m.Step(st, model.Forcing{Prec: 2, Tair: 2})
	assert.Equal(t, prev, st, "step must not mutate its input")
	assert.InDelta(t, 10.2-7.38, st2[0], 1e-12)
	assert.InDelta(t, 2+7.38, out, 1e-12)

	st3, out := m.Step(st2, model.Forcing{Tair: 20})
	assert.Equal(t, 0.0, st3[0])
	assert.InDelta(t, 10.2-7.38, out, 1e-12)
}

func TestTinBasicSubDailyStep(t *testing.T) {
	m, err := NewTinBasic(6, 0.0, 4.0, 1.0)
	require.NoError(t, err)
	st, out := m.Step(model.State{10}, model.Forcing{Tair: 2})
	// 4 mm/C/day * 2 C * 0.25 day
	assert.InDelta(t, 2.0, out, 1e-12)
	assert.InDelta(t, 8.0, st[0], 1e-12)
}

func TestTinStandardRetentionAndRefreeze(t *testing.T) {
	m, err := NewTinStandard(24, 0.5, 0.0, 3.0, 1.0, 0.1, 0.05)
	require.NoError(t, err)

	st, out := m.Step(model.State{100, 0}, model.Forcing{Prec: 5, Tair: 1})
	assert.InDelta(t, 97, st[0], 1e-12)
	assert.InDelta(t, 8, st[1], 1e-12)
	assert.Equal(t, 0.0, out, "liquid water below holding capacity stays in the pack")

	cold, out := m.Step(st, model.Forcing{Tair: -4})
	// refreeze = 0.05 * 3 * 4 = 0.6
	assert.InDelta(t, 97.6, cold[0], 1e-12)
	assert.InDelta(t, 7.4, cold[1], 1e-12)
	assert.Equal(t, 0.0, out)

	bare, out := m.Step(model.State{0, 0}, model.Forcing{Prec: 3, Tair: 5})
	assert.Equal(t, model.State{0, 0}, bare)
	assert.InDelta(t, 3, out, 1e-12, "rain on bare ground passes through")
}

func TestSnowStatesNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for _, kind := range []model.SnowKind{model.SnowTinBasic, model.SnowTinStandard} {
		m, err := New(kind, 24, nil)
		require.NoError(t, err)
		for trial := 0; trial < 200; trial++ {
			bounds := m.ParamRange()
			p := make(model.Params, len(bounds))
			for i, b := range bounds {
				p[i] = b.Min + rng.Float64()*(b.Max-b.Min)
			}
			require.NoError(t, m.AssignParams(p))
			st := m.InitStates()
			for step := 0; step < 60; step++ {
				f := model.Forcing{Prec: rng.Float64() * 30, Tair: rng.Float64()*40 - 20}
				var out float64
				st, out = m.Step(st, f)
				require.GreaterOrEqual(t, out, 0.0)
				for i, v := range st {
					require.GreaterOrEqualf(t, v, 0.0, "%s state %d negative", kind, i)
				}
			}
		}
	}
}
