package metrics

import (
	"context"

	"github.com/kilianp07/vann/core/assim"
	corelogger "github.com/kilianp07/vann/core/logger"
	coremetrics "github.com/kilianp07/vann/core/metrics"
	"github.com/kilianp07/vann/internal/eventbus"
)

// StepMetricFromEvent flattens a filter step event.
func StepMetricFromEvent(ev assim.StepEvent) coremetrics.StepMetric {
	r := ev.Result
	return coremetrics.StepMetric{
		RunID:        ev.RunID,
		Filter:       ev.Filter.String(),
		Index:        r.Index,
		Observation:  r.Observation,
		ForecastMean: r.Forecast.Mean,
		AnalysisMean: r.Analysis.Mean,
		Probs:        r.Analysis.Probs,
		Quantiles:    r.Analysis.Quantiles,
		Spread:       r.Analysis.Max - r.Analysis.Min,
		ESS:          r.ESS,
		Updated:      r.Updated,
		Skipped:      r.Skipped,
		Resampled:    r.Resampled,
		Time:         ev.Time,
	}
}

// StartEventCollector subscribes to the step bus and records every event on
// sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has exited, after draining
// the events already delivered.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[assim.StepEvent], sink coremetrics.MetricsSink, log corelogger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = corelogger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordStep(StepMetricFromEvent(ev)); err != nil {
					log.Warnf("record step %d of run %s: %v", ev.Result.Index, ev.RunID, err)
				}
			}
		}
	}()
	return done
}
