package assim

import (
	"fmt"
	"time"

	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/logger"
	"github.com/kilianp07/vann/core/model"
)

// StepResult is the ensemble discharge distribution emitted for one step.
type StepResult struct {
	Index       int     `json:"index"`
	Observation float64 `json:"observation"`
	// Forecast summarises the propagated ensemble before any correction.
	Forecast Summary `json:"forecast"`
	// Analysis summarises the ensemble after the update; it equals Forecast
	// when no update was applied.
	Analysis Summary `json:"analysis"`
	Updated  bool    `json:"updated"`
	// Skipped marks an observation step whose update was dropped because
	// the ensemble variance was degenerate.
	Skipped   bool    `json:"skipped"`
	ESS       float64 `json:"ess"`
	Resampled bool    `json:"resampled"`
}

// Mean returns the analysis ensemble mean.
func (r StepResult) Mean() float64 { return r.Analysis.Mean }

// StepEvent is published after every committed step.
type StepEvent struct {
	RunID  string
	Filter model.FilterKind
	Result StepResult
	Time   time.Time
}

// Publisher receives step events, typically an event bus.
type Publisher interface {
	Publish(StepEvent)
}

// Filter advances an ensemble by one forcing record and assimilates the
// optional observation of that step. Steps must be called sequentially.
type Filter interface {
	Kind() model.FilterKind
	Step(f model.Forcing, obs float64) (StepResult, error)
	// Members returns copies of the current ensemble members.
	Members() []Snapshot
}

type options struct {
	log   logger.Logger
	pub   Publisher
	runID string
}

// Option customises filter construction.
type Option func(*options)

// WithLogger sets the logger used by the filter.
func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

// WithPublisher publishes a StepEvent after every step.
func WithPublisher(p Publisher) Option { return func(o *options) { o.pub = p } }

// WithRunID tags published events with a run identifier.
func WithRunID(id string) Option { return func(o *options) { o.runID = id } }

func buildOptions(opts []Option) options {
	o := options{log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NopLogger{}
	}
	return o
}

// New constructs the filter selected by kind.
func New(kind model.FilterKind, m *catchment.Model, cfg Config, opts ...Option) (Filter, error) {
	switch kind {
	case model.FilterEnKF:
		return NewEnKF(m, cfg, opts...)
	case model.FilterParticle:
		return NewParticleFilter(m, cfg, opts...)
	}
	return nil, fmt.Errorf("filter kind %d: %w", kind, model.ErrUnknownKind)
}

func newStepEvent(runID string, kind model.FilterKind, res StepResult) StepEvent {
	return StepEvent{RunID: runID, Filter: kind, Result: res, Time: time.Now()}
}
