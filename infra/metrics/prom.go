package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/vann/core/metrics"
)

// PromSink exposes assimilation activity as Prometheus metrics.
type PromSink struct {
	steps      *prometheus.CounterVec
	updates    *prometheus.CounterVec
	resamples  *prometheus.CounterVec
	ess        *prometheus.GaugeVec
	discharge  *prometheus.GaugeVec
	innovation *prometheus.HistogramVec
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	evals      *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.steps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vann_filter_steps_total",
		Help: "Number of assimilation steps committed",
	}, []string{"filter"})); err != nil {
		return nil, err
	}
	if s.updates, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vann_filter_updates_total",
		Help: "Observation steps by outcome (updated or skipped)",
	}, []string{"filter", "outcome"})); err != nil {
		return nil, err
	}
	if s.resamples, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vann_filter_resamples_total",
		Help: "Number of particle resampling events",
	}, []string{"filter"})); err != nil {
		return nil, err
	}
	if s.ess, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vann_filter_effective_sample_size",
		Help: "Effective sample size after the last step",
	}, []string{"filter"})); err != nil {
		return nil, err
	}
	if s.discharge, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vann_discharge_mm",
		Help: "Discharge of the last step in mm per time step",
	}, []string{"filter", "series"})); err != nil {
		return nil, err
	}
	if s.innovation, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vann_filter_innovation_mm",
		Help:    "Observation minus forecast ensemble mean",
		Buckets: []float64{-10, -5, -2, -1, -0.5, -0.1, 0, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"filter"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vann_runs_total",
		Help: "Finished runs by command and status",
	}, []string{"command", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vann_run_duration_seconds",
		Help:    "Wall time of finished runs",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"command"})); err != nil {
		return nil, err
	}
	if s.evals, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vann_calibration_evaluations_total",
		Help: "Objective evaluations during calibration",
	}, []string{"metric"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStep updates the step counters and gauges.
func (s *PromSink) RecordStep(m coremetrics.StepMetric) error {
	s.steps.WithLabelValues(m.Filter).Inc()
	s.ess.WithLabelValues(m.Filter).Set(m.ESS)
	s.discharge.WithLabelValues(m.Filter, "forecast").Set(m.ForecastMean)
	s.discharge.WithLabelValues(m.Filter, "analysis").Set(m.AnalysisMean)
	switch {
	case m.Updated:
		s.updates.WithLabelValues(m.Filter, "updated").Inc()
		s.discharge.WithLabelValues(m.Filter, "observation").Set(m.Observation)
		s.innovation.WithLabelValues(m.Filter).Observe(m.Innovation())
	case m.Skipped:
		s.updates.WithLabelValues(m.Filter, "skipped").Inc()
	}
	if m.Resampled {
		s.resamples.WithLabelValues(m.Filter).Inc()
	}
	return nil
}

// RecordRun counts the run and observes its duration.
func (s *PromSink) RecordRun(m coremetrics.RunMetric) error {
	s.runs.WithLabelValues(m.Command, runStatus(m)).Inc()
	s.duration.WithLabelValues(m.Command).Observe(m.Duration.Seconds())
	return nil
}

// RecordEvaluation counts a calibration objective evaluation.
func (s *PromSink) RecordEvaluation(m coremetrics.EvaluationMetric) error {
	s.evals.WithLabelValues(m.Metric).Inc()
	return nil
}

func runStatus(m coremetrics.RunMetric) string {
	if m.Err != "" {
		return "failed"
	}
	return "ok"
}

func formatBool(b bool) string { return strconv.FormatBool(b) }
