package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsClampTo(t *testing.T) {
	bounds := []Bound{{Min: 0, Max: 1}, {Min: -2, Max: 2}}
	p := Params{1.5, -3}
	assert.Equal(t, Params{1, -2}, p.ClampTo(bounds))
	assert.Equal(t, Params{1.5, -3}, p, "input is not modified")
}

func TestBoundReflect(t *testing.T) {
	b := Bound{Min: 0, Max: 10}
	cases := []struct {
		in, want float64
	}{
		{5, 5},
		{-2, 2},
		{12, 8},
		{23, 3},
		{-21, 1},
		{0, 0},
		{10, 10},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, b.Reflect(c.in), 1e-12, "reflect %v", c.in)
	}
	assert.Equal(t, 0.0, b.Reflect(math.NaN()))
	assert.Equal(t, 10.0, b.Clamp(11))
}

func TestParseKinds(t *testing.T) {
	sk, err := ParseSnowKind("tin_basic")
	require.NoError(t, err)
	assert.Equal(t, SnowTinBasic, sk)
	hk, err := ParseHydroKind("HBV")
	require.NoError(t, err)
	assert.Equal(t, HydroHbv, hk)
	fk, err := ParseFilterKind("particle")
	require.NoError(t, err)
	assert.Equal(t, FilterParticle, fk)

	_, err = ParseHydroKind("sacramento")
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Equal(t, "Gr4j", HydroGr4j.String())
	assert.Equal(t, "TinStandard", SnowTinStandard.String())
}

func TestStateHelpers(t *testing.T) {
	s := State{1, -2, math.NaN()}
	cp := s.Clone()
	s.ClampNonNegative()
	assert.Equal(t, State{1, 0, 0}, s)
	assert.Equal(t, -2.0, cp[1])
	assert.Equal(t, map[string]float64{"a": 1, "b": 0}, s.Named([]string{"a", "b"}))
}

func TestNewForcings(t *testing.T) {
	f, err := NewForcings([]float64{1, 2}, nil, []float64{0.5, 0.5})
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, 2.0, f[1].Prec)
	assert.Equal(t, 0.5, f[1].Epot)

	_, err = NewForcings([]float64{1, 2}, []float64{1}, nil)
	assert.ErrorIs(t, err, ErrForcingLengthMismatch)

	assert.ErrorIs(t, CheckAligned(f, []float64{1}), ErrForcingLengthMismatch)
	assert.NoError(t, CheckAligned(f, []float64{1, Missing}))
}

func TestForcingBand(t *testing.T) {
	f := Forcing{Prec: 1, Tair: -1, BandTair: []float64{-3, 2}}
	p, ta := f.Band(1)
	assert.Equal(t, 1.0, p)
	assert.Equal(t, 2.0, ta)
	p, ta = f.Band(3)
	assert.Equal(t, 1.0, p)
	assert.Equal(t, -1.0, ta)
	cp := f.Clone()
	cp.BandTair[0] = 99
	assert.Equal(t, -3.0, f.BandTair[0])
}

func TestCheckParamCount(t *testing.T) {
	assert.NoError(t, CheckParamCount("x", 3, 3))
	assert.ErrorIs(t, CheckParamCount("x", 2, 3), ErrInvalidParameterCount)
}
