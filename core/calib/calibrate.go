package calib

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/kilianp07/vann/core/logger"
	"github.com/kilianp07/vann/core/model"
)

// Settings controls the optimizer adapter.
type Settings struct {
	// MaxEvaluations bounds the number of Score calls.
	MaxEvaluations int `json:"max_evaluations"`
	// Initial is the starting parameter vector; defaults are used when nil.
	Initial model.Params `json:"initial"`
	// Tolerance is the absolute loss change regarded as converged.
	Tolerance float64       `json:"tolerance"`
	Logger    logger.Logger `json:"-"`
	// OnEvaluation, when set, receives the metric value of every scored
	// parameter vector with its running evaluation count.
	OnEvaluation func(n int, score float64) `json:"-"`
}

// SetDefaults fills unset fields.
func (s *Settings) SetDefaults() {
	if s.MaxEvaluations == 0 {
		s.MaxEvaluations = 2000
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-8
	}
	if s.Logger == nil {
		s.Logger = logger.NopLogger{}
	}
}

// Result is the best parameter vector found.
type Result struct {
	Params      model.Params `json:"params"`
	Score       float64      `json:"score"`
	Evaluations int          `json:"evaluations"`
	Status      string       `json:"status"`
}

// Calibrate searches the parameter space with Nelder-Mead. The search runs
// in unit coordinates mirrored into [0, 1], so every evaluated vector lies
// within the parameter ranges. Cancellation is honoured between
// evaluations.
func Calibrate(ctx context.Context, obj Objective, s Settings) (Result, error) {
	s.SetDefaults()
	if err := obj.Validate(); err != nil {
		return Result{}, err
	}
	bounds, err := obj.Bounds()
	if err != nil {
		return Result{}, err
	}
	init := s.Initial
	if init == nil {
		if init, err = obj.Defaults(); err != nil {
			return Result{}, err
		}
	}
	if err := model.CheckParamCount("calibration", len(init), len(bounds)); err != nil {
		return Result{}, err
	}

	x0 := make([]float64, len(bounds))
	for i, b := range bounds {
		x0[i] = (b.Clamp(init[i]) - b.Min) / (b.Max - b.Min)
	}
	decode := func(x []float64) model.Params {
		p := make(model.Params, len(x))
		unit := model.Bound{Min: 0, Max: 1}
		for i, b := range bounds {
			p[i] = b.Min + unit.Reflect(x[i])*(b.Max-b.Min)
		}
		return p
	}

	evals := 0
	prob := optimize.Problem{
		Func: func(x []float64) float64 {
			evals++
			v, err := obj.Score(decode(x))
			if err != nil {
				return math.Inf(1)
			}
			if s.OnEvaluation != nil {
				s.OnEvaluation(evals, v)
			}
			return Loss(obj.Metric, v)
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: s.MaxEvaluations,
		Converger:       &optimize.FunctionConverge{Absolute: s.Tolerance, Iterations: 200},
	}
	res, err := optimize.Minimize(prob, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return Result{}, fmt.Errorf("calibration: %w", err)
	}

	best := decode(res.X)
	score, err := obj.Score(best)
	if err != nil {
		return Result{}, err
	}
	s.Logger.Infof("calibration finished: %s=%.4f after %d evaluations (%s)", obj.Metric, score, res.FuncEvaluations, res.Status)
	return Result{
		Params:      best,
		Score:       score,
		Evaluations: res.FuncEvaluations,
		Status:      res.Status.String(),
	}, nil
}
