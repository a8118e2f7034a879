package scenarios

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/vann/config"
	"github.com/kilianp07/vann/core/assim"
	"github.com/kilianp07/vann/core/catchment"
	"github.com/kilianp07/vann/core/model"
	"github.com/kilianp07/vann/infra/metrics"
	"github.com/kilianp07/vann/internal/eventbus"
)

// Observations simulates the truth run and blanks the gap steps.
func (sc *Scenario) Observations(forcings []model.Forcing) ([]float64, error) {
	truth := config.ModelConfig{
		Snow:        sc.Model.Snow,
		Hydro:       sc.Model.Hydro,
		TimeStep:    sc.Model.TimeStep,
		Fractions:   sc.Model.Fractions,
		SnowParams:  orDefault(sc.Truth.SnowParams, sc.Model.SnowParams),
		HydroParams: orDefault(sc.Truth.HydroParams, sc.Model.HydroParams),
	}
	m, err := truth.Build()
	if err != nil {
		return nil, err
	}
	obs, err := catchment.Simulate(m, m.Params(), forcings)
	if err != nil {
		return nil, err
	}
	for _, i := range sc.ObsGaps {
		if i >= 0 && i < len(obs) {
			obs[i] = model.Missing
		}
	}
	return obs, nil
}

func orDefault(v, def []float64) []float64 {
	if len(v) > 0 {
		return v
	}
	return def
}

func RunScenario(t *testing.T, sc *Scenario) {
	forcings, err := sc.Forcing.Series()
	if err != nil {
		t.Fatalf("forcing: %v", err)
	}
	obs, err := sc.Observations(forcings)
	if err != nil {
		t.Fatalf("observations: %v", err)
	}
	m, err := sc.Model.Build()
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	kind, err := sc.Filter.FilterKind()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.NewTyped[assim.StepEvent](len(forcings))
	ctx, cancel := context.WithCancel(context.Background())
	done := metrics.StartEventCollector(ctx, bus, sink, nil)

	results, err := assim.RunFilter(ctx, kind, m, sc.Filter.Config, forcings, obs,
		assim.WithPublisher(bus), assim.WithRunID(sc.Name))
	bus.Close()
	<-done
	cancel()
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	if len(results) != len(forcings) {
		t.Fatalf("expected %d results, got %d", len(forcings), len(results))
	}

	updated := 0
	var sseForecast, sseAnalysis float64
	for i, r := range results {
		if model.IsMissing(obs[i]) && r.Updated {
			t.Errorf("step %d updated without observation", i)
		}
		if r.ESS <= 0 || r.ESS > float64(sc.Filter.Members)+1e-9 {
			t.Errorf("step %d: effective sample size %v outside (0, %d]", i, r.ESS, sc.Filter.Members)
		}
		if r.Analysis.Min < 0 {
			t.Errorf("step %d: negative discharge %v", i, r.Analysis.Min)
		}
		if !r.Updated {
			continue
		}
		updated++
		sseForecast += math.Pow(r.Forecast.Mean-obs[i], 2)
		sseAnalysis += math.Pow(r.Analysis.Mean-obs[i], 2)
	}
	if updated < sc.Expected.MinUpdated {
		t.Errorf("scenario %s expected at least %d updates, got %d", sc.Name, sc.Expected.MinUpdated, updated)
	}
	if sc.Expected.MaxRMSERatio > 0 && sseForecast > 0 {
		ratio := math.Sqrt(sseAnalysis / sseForecast)
		if ratio > sc.Expected.MaxRMSERatio {
			t.Errorf("scenario %s analysis/forecast RMSE ratio %.3f above %.3f", sc.Name, ratio, sc.Expected.MaxRMSERatio)
		}
	}
	want := fmt.Sprintf(`# HELP vann_filter_steps_total Number of assimilation steps committed
# TYPE vann_filter_steps_total counter
vann_filter_steps_total{filter=%q} %d
`, kind.String(), len(results))
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "vann_filter_steps_total"); err != nil {
		t.Errorf("collector steps: %v", err)
	}
}
