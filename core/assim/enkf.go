package assim

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/model"
)

// minInnovationVariance is the smallest var(q)+R for which an update is
// applied.
const minInnovationVariance = 1e-12

// EnKF is a stochastic ensemble Kalman filter. The member discharge is
// appended to the state vector so that the analysis also corrects the
// simulated discharge of the current step.
type EnKF struct {
	*ensemble
	opts options
}

// NewEnKF creates an ensemble Kalman filter over copies of m.
func NewEnKF(m *catchment.Model, cfg Config, opts ...Option) (*EnKF, error) {
	o := buildOptions(opts)
	e, err := newEnsemble(m, cfg, o.log)
	if err != nil {
		return nil, err
	}
	return &EnKF{ensemble: e, opts: o}, nil
}

func (f *EnKF) Kind() model.FilterKind { return model.FilterEnKF }

// Members returns copies of the current ensemble members.
func (f *EnKF) Members() []Snapshot { return f.snapshots() }

// Step runs the forecast and, when obs is present, the analysis.
func (f *EnKF) Step(forcing model.Forcing, obs float64) (StepResult, error) {
	q := f.forecast(forcing)
	res := StepResult{
		Index:       f.step - 1,
		Observation: obs,
		Forecast:    summarize(q, nil, f.cfg.Quantiles),
		ESS:         float64(len(q)),
	}
	res.Analysis = res.Forecast
	if !model.IsMissing(obs) {
		if f.update(q, obs) {
			res.Updated = true
			res.Analysis = summarize(f.discharges(), nil, f.cfg.Quantiles)
		} else {
			res.Skipped = true
			f.log.Debugw("enkf update skipped", map[string]any{"step": res.Index, "members": len(q)})
		}
	}
	f.publish(res)
	return res, nil
}

// update applies the Kalman correction. It reports false when the
// ensemble is too small or its discharge variance plus R vanishes.
func (f *EnKF) update(q []float64, obs float64) bool {
	n := len(f.members)
	if n <= 1 {
		return false
	}
	r := f.cfg.ObsError.Variance(obs)
	varQ := stat.Variance(q, nil)
	denom := varQ + r
	if denom <= minInnovationVariance || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return false
	}

	d := len(f.members[0].state)
	x := mat.NewDense(n, d, nil)
	for i, m := range f.members {
		x.SetRow(i, m.state)
	}
	gain := make([]float64, d)
	col := make([]float64, n)
	for j := range gain {
		mat.Col(col, j, x)
		gain[j] = stat.Covariance(col, q, nil) / denom
	}
	gainQ := varQ / denom

	noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(r), Src: f.src}
	for i := range f.members {
		m := &f.members[i]
		innov := obs - m.q
		if r > 0 {
			innov += noise.Rand()
		}
		for j := range m.state {
			m.state[j] += gain[j] * innov
		}
		m.model.Clamp(m.state)
		m.q = math.Max(m.q+gainQ*innov, 0)
	}
	return true
}

func (f *EnKF) publish(res StepResult) {
	if f.opts.pub != nil {
		f.opts.pub.Publish(newStepEvent(f.opts.runID, model.FilterEnKF, res))
	}
}
