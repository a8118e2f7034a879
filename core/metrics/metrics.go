package metrics

import "time"

// StepMetric describes one committed assimilation step.
type StepMetric struct {
	RunID        string
	Filter       string
	Index        int
	Observation  float64
	ForecastMean float64
	AnalysisMean float64
	// Probs and Quantiles describe the analysis distribution.
	Probs     []float64
	Quantiles []float64
	Spread    float64
	ESS       float64
	Updated   bool
	Skipped   bool
	Resampled bool
	Time      time.Time
}

// Innovation returns the observation minus the forecast mean.
func (m StepMetric) Innovation() float64 { return m.Observation - m.ForecastMean }

// MetricsSink records assimilation steps for observability purposes.
type MetricsSink interface {
	RecordStep(m StepMetric) error
}

// RunMetric summarises a finished simulate, filter or calibrate run.
type RunMetric struct {
	RunID    string
	Command  string
	Filter   string
	Steps    int
	Members  int
	Metric   string
	Score    float64
	Duration time.Duration
	Err      string
	Time     time.Time
}

// RunRecorder records finished runs.
type RunRecorder interface {
	RecordRun(m RunMetric) error
}

// EvaluationMetric is one objective evaluation during calibration.
type EvaluationMetric struct {
	RunID  string
	Metric string
	Score  float64
	Time   time.Time
}

// EvaluationRecorder records calibration objective evaluations.
type EvaluationRecorder interface {
	RecordEvaluation(m EvaluationMetric) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordStep(StepMetric) error             { return nil }
func (NopSink) RecordRun(RunMetric) error               { return nil }
func (NopSink) RecordEvaluation(EvaluationMetric) error { return nil }
