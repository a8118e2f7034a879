package model

import (
	"fmt"
	"math"
)

// Bound is the admissible closed interval of a parameter.
type Bound struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp limits v to [Min, Max].
func (b Bound) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Reflect folds v back into [Min, Max] by mirroring at the bounds.
func (b Bound) Reflect(v float64) float64 {
	w := b.Max - b.Min
	if w <= 0 || math.IsNaN(v) {
		return b.Clamp(v)
	}
	if v >= b.Min && v <= b.Max {
		return v
	}
	// distance travelled over a period of 2w
	d := math.Mod(v-b.Min, 2*w)
	if d < 0 {
		d += 2 * w
	}
	if d > w {
		d = 2*w - d
	}
	return b.Min + d
}

// Contains reports whether v lies inside the interval.
func (b Bound) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Params is an ordered parameter vector of a model variant.
type Params []float64

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	cp := make(Params, len(p))
	copy(cp, p)
	return cp
}

// ClampTo returns a copy of p with every value clamped to its bound.
// bounds must have the same length as p.
func (p Params) ClampTo(bounds []Bound) Params {
	cp := p.Clone()
	for i, b := range bounds {
		cp[i] = b.Clamp(cp[i])
	}
	return cp
}

// CheckParamCount validates the length of a parameter vector.
func CheckParamCount(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s expects %d parameters, got %d: %w", name, want, got, ErrInvalidParameterCount)
	}
	return nil
}

// State is the ordered state vector of a model component. The meaning of
// each entry is given by the component's StateNames.
type State []float64

// Clone returns an independent copy of s.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	cp := make(State, len(s))
	copy(cp, s)
	return cp
}

// Named maps a state vector onto its variable names.
func (s State) Named(names []string) map[string]float64 {
	m := make(map[string]float64, len(names))
	for i, n := range names {
		if i < len(s) {
			m[n] = s[i]
		}
	}
	return m
}

// ClampNonNegative sets every negative or NaN entry of s to zero.
func (s State) ClampNonNegative() {
	for i, v := range s {
		if v < 0 || math.IsNaN(v) {
			s[i] = 0
		}
	}
}
