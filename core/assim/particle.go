package assim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/model"
)

// ParticleFilter is a sequential importance resampling filter. Weights are
// multiplied by a Gaussian discharge likelihood at observation steps and
// the particles are resampled systematically when the effective sample
// size falls below the configured threshold.
type ParticleFilter struct {
	*ensemble
	opts options
}

// NewParticleFilter creates a particle filter over copies of m with
// uniform initial weights.
func NewParticleFilter(m *catchment.Model, cfg Config, opts ...Option) (*ParticleFilter, error) {
	o := buildOptions(opts)
	e, err := newEnsemble(m, cfg, o.log)
	if err != nil {
		return nil, err
	}
	if err := e.cfg.ObsError.CheckLikelihood(); err != nil {
		return nil, err
	}
	return &ParticleFilter{ensemble: e, opts: o}, nil
}

func (f *ParticleFilter) Kind() model.FilterKind { return model.FilterParticle }

// Members returns copies of the current particles.
func (f *ParticleFilter) Members() []Snapshot { return f.snapshots() }

// Weights returns a copy of the normalised particle weights.
func (f *ParticleFilter) Weights() []float64 { return f.weights() }

// Step runs the forecast and, when obs is present, reweights and possibly
// resamples the particles. It fails with model.ErrFilterDegeneracy when
// every weight underflows to zero.
func (f *ParticleFilter) Step(forcing model.Forcing, obs float64) (StepResult, error) {
	q := f.forecast(forcing)
	w := f.weights()
	res := StepResult{
		Index:       f.step - 1,
		Observation: obs,
		Forecast:    summarize(q, w, f.cfg.Quantiles),
		ESS:         EffectiveSampleSize(w),
	}
	res.Analysis = res.Forecast
	if model.IsMissing(obs) {
		f.publish(res)
		return res, nil
	}

	if err := f.reweight(q, w, obs); err != nil {
		return res, fmt.Errorf("step %d: %w", res.Index, err)
	}
	res.Updated = true
	res.Analysis = summarize(q, w, f.cfg.Quantiles)
	res.ESS = EffectiveSampleSize(w)

	if res.ESS < f.cfg.ResampleThreshold*float64(len(w)) {
		f.resample(w)
		res.Resampled = true
		f.log.Debugw("particles resampled", map[string]any{"step": res.Index, "ess": res.ESS})
	}
	f.publish(res)
	return res, nil
}

// reweight multiplies w by the observation likelihood, normalises it and
// stores it on the members.
func (f *ParticleFilter) reweight(q, w []float64, obs float64) error {
	sd := f.cfg.ObsError.StdDev(obs)
	if sd <= 0 {
		return fmt.Errorf("%w: got %v", ErrObsErrorSigma, sd)
	}
	lik := distuv.Normal{Mu: obs, Sigma: sd}
	for i := range w {
		w[i] *= lik.Prob(q[i])
	}
	sum := floats.Sum(w)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return model.ErrFilterDegeneracy
	}
	floats.Scale(1/sum, w)
	for i := range f.members {
		f.members[i].weight = w[i]
	}
	return nil
}

// resample replaces the particles by systematic selection over w. Selected
// particles are deep copied so that duplicates evolve independently.
func (f *ParticleFilter) resample(w []float64) {
	n := len(f.members)
	u0 := distuv.Uniform{Min: 0, Max: 1 / float64(n), Src: f.src}.Rand()
	idx := SystematicResample(w, u0)

	type source struct {
		model *catchment.Model
		state model.State
		q     float64
	}
	old := make([]source, n)
	for i, m := range f.members {
		old[i] = source{model: m.model, state: m.state, q: m.q}
	}
	for i, j := range idx {
		m := &f.members[i]
		m.model = old[j].model.Clone()
		m.state = old[j].state.Clone()
		m.q = old[j].q
		m.weight = 1 / float64(n)
	}
}

func (f *ParticleFilter) publish(res StepResult) {
	if f.opts.pub != nil {
		f.opts.pub.Publish(newStepEvent(f.opts.runID, model.FilterParticle, res))
	}
}
