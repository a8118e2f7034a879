package metrics

import "errors"

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the step to every sink and joins their errors.
func (m *MultiSink) RecordStep(s StepMetric) error {
	var errs []error
	for _, sk := range m.Sinks {
		if err := sk.RecordStep(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRun forwards the run to sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(r RunMetric) error {
	var errs []error
	for _, sk := range m.Sinks {
		if rec, ok := sk.(RunRecorder); ok {
			if err := rec.RecordRun(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordEvaluation forwards the evaluation to sinks implementing
// EvaluationRecorder.
func (m *MultiSink) RecordEvaluation(e EvaluationMetric) error {
	var errs []error
	for _, sk := range m.Sinks {
		if rec, ok := sk.(EvaluationRecorder); ok {
			if err := rec.RecordEvaluation(e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink that holds a connection.
func (m *MultiSink) Close() {
	for _, sk := range m.Sinks {
		if c, ok := sk.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
