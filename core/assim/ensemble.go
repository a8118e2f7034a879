package assim

import (
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/logger"
	"github.com/kilianp07/vann/core/model"
)

// member is one replica of the composite model. Each member owns its model
// copy, state and random source; nothing is shared between members.
type member struct {
	model  *catchment.Model
	state  model.State
	weight float64
	q      float64
	src    rand.Source
}

// ensemble is the arena of members shared by both filters.
type ensemble struct {
	cfg     Config
	members []member
	// src drives the analysis phase: observation perturbation and resampling.
	src  rand.Source
	log  logger.Logger
	step int
}

func newEnsemble(m *catchment.Model, cfg Config, log logger.Logger) (*ensemble, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("model is required")
	}
	noise := *cfg.Noise
	cfg.Noise = &noise
	e := &ensemble{
		cfg:     cfg,
		members: make([]member, cfg.Members),
		src:     rand.NewPCG(cfg.Seed, 0),
		log:     log,
	}
	base := m.Params()
	bounds := m.ParamRange()
	for i := range e.members {
		mem := member{
			model:  m.Clone(),
			weight: 1 / float64(cfg.Members),
			src:    rand.NewPCG(cfg.Seed, uint64(i)+1),
		}
		if cfg.Noise.ParamSigma > 0 {
			if err := mem.model.AssignParams(perturbParams(base, bounds, cfg.Noise.ParamSigma, mem.src)); err != nil {
				return nil, err
			}
		}
		mem.state = mem.model.InitStates()
		e.members[i] = mem
	}
	return e, nil
}

// forecast propagates every member one step with its own perturbed forcing.
// Members run concurrently; each goroutine only touches its own member.
func (e *ensemble) forecast(f model.Forcing) []float64 {
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range e.members {
		mem := &e.members[i]
		g.Go(func() error {
			pf := perturbForcing(f, *e.cfg.Noise, mem.src)
			mem.state, mem.q = mem.model.Step(mem.state, pf)
			return nil
		})
	}
	_ = g.Wait()
	e.step++
	return e.discharges()
}

func (e *ensemble) discharges() []float64 {
	q := make([]float64, len(e.members))
	for i, m := range e.members {
		q[i] = m.q
	}
	return q
}

func (e *ensemble) weights() []float64 {
	w := make([]float64, len(e.members))
	for i, m := range e.members {
		w[i] = m.weight
	}
	return w
}

// Snapshot is a read-only copy of one ensemble member.
type Snapshot struct {
	State     model.State  `json:"state"`
	Params    model.Params `json:"params"`
	Weight    float64      `json:"weight"`
	Discharge float64      `json:"discharge"`
}

func (e *ensemble) snapshots() []Snapshot {
	out := make([]Snapshot, len(e.members))
	for i, m := range e.members {
		out[i] = Snapshot{
			State:     m.state.Clone(),
			Params:    m.model.Params(),
			Weight:    m.weight,
			Discharge: m.q,
		}
	}
	return out
}
