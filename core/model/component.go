package model

// Component is the capability set shared by every state-space model
// variant. Step is a pure function of the given state and one forcing
// record: it never mutates st and advances the state by exactly one time step.
type Component interface {
	// TimeStep returns the model time step in hours.
	TimeStep() float64
	StateNames() []string
	InitStates() State
	ParamRange() []Bound
	Params() Params
	AssignParams(p Params) error
	Step(st State, f Forcing) (State, float64)
	// Clamp enforces the physical bounds of st in place.
	Clamp(st State)
}

// DayFraction converts a time step in hours to a fraction of a day.
func DayFraction(tstep float64) float64 { return tstep / 24.0 }

// Defaults copies the default parameter vector when p is empty.
func Defaults(p, def Params) Params {
	if len(p) == 0 {
		return def.Clone()
	}
	return p.Clone()
}
