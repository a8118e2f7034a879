package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/vann/config"
	"github.com/kilianp07/vann/core/assim"
	"github.com/kilianp07/vann/core/calib"
	"github.com/kilianp07/vann/core/catchment"
	coremetrics "github.com/kilianp07/vann/core/metrics"
	"github.com/kilianp07/vann/core/model"
	"github.com/kilianp07/vann/infra/dataio"
	"github.com/kilianp07/vann/infra/logger"
	"github.com/kilianp07/vann/infra/metrics"
	"github.com/kilianp07/vann/infra/mqtt"
	"github.com/kilianp07/vann/infra/store"
	"github.com/kilianp07/vann/internal/eventbus"
)

// Commands recorded in the run store.
const (
	CommandSimulate  = "simulate"
	CommandFilter    = "filter"
	CommandCalibrate = "calibrate"
)

// Service runs simulations, filters and calibrations described by the
// configuration and records every run.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	sink  coremetrics.MetricsSink
	store store.RunStore
}

// Option customises the service.
type Option func(*Service)

// WithSink replaces the configured metrics sinks.
func WithSink(s coremetrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }

// WithStore replaces the configured run store.
func WithStore(s store.RunStore) Option { return func(svc *Service) { svc.store = s } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	svc := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.log == nil {
		svc.log = logger.New("service")
	}
	if svc.sink == nil {
		sink, err := newSink(cfg)
		if err != nil {
			return nil, err
		}
		svc.sink = sink
	}
	if svc.store == nil {
		st, err := store.Open(cfg.Store)
		if err != nil {
			svc.closeSink()
			return nil, fmt.Errorf("run store: %w", err)
		}
		svc.store = st
	}
	return svc, nil
}

func newSink(cfg *config.Config) (coremetrics.MetricsSink, error) {
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	if cfg.MQTT == nil {
		return sink, nil
	}
	client, err := mqtt.NewPahoClient(*cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	return coremetrics.NewMultiSink(sink, metrics.NewMQTTSink(client)), nil
}

// Serve exposes the Prometheus endpoint when configured and blocks until
// the context is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusAddr == "" {
		return nil
	}
	return metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr, prometheus.DefaultGatherer, s.log)
}

// LoadInput reads the forcing and observation tables. Empty paths fall back
// to the data section of the configuration.
func (s *Service) LoadInput(forcingPath, obsPath string) (dataio.Series, error) {
	if forcingPath == "" {
		forcingPath = s.cfg.Data.Forcing
	}
	if obsPath == "" {
		obsPath = s.cfg.Data.Observations
	}
	if forcingPath == "" {
		return dataio.Series{}, errors.New("no forcing table configured")
	}
	return dataio.Load(forcingPath, obsPath)
}

// SimulationResult is the deterministic discharge of a simulate run.
type SimulationResult struct {
	RunID string
	Q     []float64
	// Score is NaN when no observation was available.
	Score float64
}

// Simulate runs the configured model over the series with its configured
// parameters and scores it against the observations when present.
func (s *Service) Simulate(ctx context.Context, in dataio.Series) (res SimulationResult, err error) {
	rec := s.newRecord(CommandSimulate, in)
	res = SimulationResult{RunID: rec.ID, Score: math.NaN()}
	defer func() { s.finish(ctx, &rec, res.Score, err) }()

	m, err := s.cfg.Model.Build()
	if err != nil {
		return res, err
	}
	rec.Params = m.Params()
	res.Q, err = catchment.Simulate(m, m.Params(), in.Forcings)
	if err != nil {
		return res, err
	}
	rec.Steps = len(res.Q)
	rec.MeanQ = mean(res.Q)
	if in.Obs != nil {
		rec.Metric = s.cfg.Calibration.Metric
		res.Score, err = s.score(res.Q, in.Obs)
		if err != nil {
			return res, err
		}
	}
	s.log.Infof("simulation %s: %d steps", rec.ID, rec.Steps)
	return res, nil
}

func (s *Service) score(q, obs []float64) (float64, error) {
	metric, err := calib.ParseMetric(s.cfg.Calibration.Metric)
	if err != nil {
		return math.NaN(), err
	}
	v, err := calib.Evaluate(metric, q, obs, s.cfg.Calibration.Warmup)
	if errors.Is(err, calib.ErrNoData) {
		s.log.Warnf("no observation after warmup, simulation left unscored")
		return math.NaN(), nil
	}
	return v, err
}

// FilterResult holds the per-step ensemble summaries of a filter run.
type FilterResult struct {
	RunID string
	Steps []assim.StepResult
}

// Filter assimilates the observations with the configured filter. Every
// step is published on an event bus feeding the metrics sinks.
func (s *Service) Filter(ctx context.Context, in dataio.Series) (res FilterResult, err error) {
	rec := s.newRecord(CommandFilter, in)
	res.RunID = rec.ID
	defer func() { s.finish(ctx, &rec, math.NaN(), err) }()

	kind, err := s.cfg.Filter.FilterKind()
	if err != nil {
		return res, err
	}
	rec.Filter = kind.String()
	rec.Members = s.cfg.Filter.Members
	m, err := s.cfg.Model.Build()
	if err != nil {
		return res, err
	}
	rec.Params = m.Params()

	bus := eventbus.NewTyped[assim.StepEvent](eventbus.DefaultBuffer * 8)
	collectCtx, cancel := context.WithCancel(ctx)
	done := metrics.StartEventCollector(collectCtx, bus, s.sink, s.log)
	res.Steps, err = assim.RunFilter(ctx, kind, m, s.cfg.Filter.Config, in.Forcings, in.ObsOrMissing(),
		assim.WithLogger(logger.New(kind.String())),
		assim.WithPublisher(bus),
		assim.WithRunID(rec.ID))
	bus.Close()
	<-done
	cancel()
	if n := bus.Dropped(); n > 0 {
		s.log.Warnf("filter run %s: %d step events dropped by slow sinks", rec.ID, n)
	}
	rec.Steps = len(res.Steps)
	rec.MeanQ = mean(assim.Means(res.Steps))
	if err != nil {
		return res, err
	}
	updated := 0
	for _, r := range res.Steps {
		if r.Updated {
			updated++
		}
	}
	s.log.Infof("filter run %s: %s with %d members, %d steps, %d updates", rec.ID, kind, rec.Members, rec.Steps, updated)
	return res, nil
}

// CalibrationResult is the best parameter vector of a calibrate run.
type CalibrationResult struct {
	RunID string
	calib.Result
}

// Calibrate fits the model parameters to the observations.
func (s *Service) Calibrate(ctx context.Context, in dataio.Series) (res CalibrationResult, err error) {
	rec := s.newRecord(CommandCalibrate, in)
	res.RunID = rec.ID
	res.Score = math.NaN()
	rec.Metric = s.cfg.Calibration.Metric
	defer func() { s.finish(ctx, &rec, res.Score, err) }()

	if in.Obs == nil {
		return res, errors.New("calibration needs observations")
	}
	sk, hk, err := s.cfg.Model.Kinds()
	if err != nil {
		return res, err
	}
	metric, err := calib.ParseMetric(s.cfg.Calibration.Metric)
	if err != nil {
		return res, err
	}
	obj := calib.Objective{
		Snow:      sk,
		Hydro:     hk,
		TimeStep:  s.cfg.Model.TimeStep,
		Fractions: s.cfg.Model.Fractions,
		Forcings:  in.Forcings,
		Obs:       in.Obs,
		Warmup:    s.cfg.Calibration.Warmup,
		Metric:    metric,
	}
	settings := s.cfg.Calibration.Settings()
	settings.Logger = logger.New("calibration")
	if m, err := s.cfg.Model.Build(); err == nil {
		settings.Initial = m.Params()
	}
	if er, ok := s.sink.(coremetrics.EvaluationRecorder); ok {
		settings.OnEvaluation = func(n int, score float64) {
			if err := er.RecordEvaluation(coremetrics.EvaluationMetric{
				RunID: rec.ID, Metric: string(metric), Score: score, Time: time.Now(),
			}); err != nil && n == 1 {
				s.log.Warnf("record evaluation: %v", err)
			}
		}
	}
	rec.Steps = len(in.Forcings)
	out, err := calib.Calibrate(ctx, obj, settings)
	if err != nil {
		return res, err
	}
	res.Result = out
	rec.Params = out.Params
	if q, err := obj.Simulate(out.Params); err == nil {
		rec.MeanQ = mean(q)
	}
	return res, nil
}

// Runs lists stored runs.
func (s *Service) Runs(ctx context.Context, q store.Query) ([]store.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// Run returns one stored run.
func (s *Service) Run(ctx context.Context, id string) (store.RunRecord, error) {
	return store.Get(ctx, s.store, id)
}

func (s *Service) newRecord(command string, in dataio.Series) store.RunRecord {
	rec := store.NewRunRecord(command)
	rec.InputPath = in.Source
	rec.Snow = s.cfg.Model.Snow
	rec.Hydro = s.cfg.Model.Hydro
	return rec
}

// finish stores the run and reports it to run recorders. Failures are
// logged; they never mask the run error.
func (s *Service) finish(ctx context.Context, rec *store.RunRecord, score float64, runErr error) {
	rec.Finish(runErr)
	if !math.IsNaN(score) && !math.IsInf(score, 0) {
		v := score
		rec.Score = &v
	}
	if err := s.store.Append(context.WithoutCancel(ctx), *rec); err != nil {
		s.log.Errorf("store run %s: %v", rec.ID, err)
	}
	rr, ok := s.sink.(coremetrics.RunRecorder)
	if !ok {
		return
	}
	m := coremetrics.RunMetric{
		RunID:    rec.ID,
		Command:  rec.Command,
		Filter:   rec.Filter,
		Steps:    rec.Steps,
		Members:  rec.Members,
		Metric:   rec.Metric,
		Score:    score,
		Duration: rec.Duration(),
		Err:      rec.Error,
		Time:     rec.End,
	}
	if err := rr.RecordRun(m); err != nil {
		s.log.Warnf("record run %s: %v", rec.ID, err)
	}
}

func mean(v []float64) *float64 {
	sum, n := 0.0, 0
	for _, x := range v {
		if model.IsMissing(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

func (s *Service) closeSink() {
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
}

// Close releases the store and the metrics sinks.
func (s *Service) Close() error {
	s.closeSink()
	return s.store.Close()
}
