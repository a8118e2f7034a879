package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/vann/core/metrics"
	"github.com/kilianp07/vann/infra/logger"
	"github.com/kilianp07/vann/pkg/export"
)

// InfluxConfig locates the InfluxDB bucket receiving step points.
type InfluxConfig struct {
	URL     string        `json:"url"`
	Token   string        `json:"token"`
	Org     string        `json:"org"`
	Bucket  string        `json:"bucket"`
	Timeout time.Duration `json:"timeout"`
}

// InfluxSink writes assimilation steps and runs to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	timeout  time.Duration
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		timeout:  cfg.Timeout,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), sink.timeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// StepPoint converts a step into the "assim_step" measurement. Missing
// observations are left out of the field set.
func StepPoint(m coremetrics.StepMetric) *write.Point {
	p := write.NewPointWithMeasurement("assim_step").
		AddTag("run_id", m.RunID).
		AddTag("filter", m.Filter).
		AddTag("updated", formatBool(m.Updated)).
		AddTag("resampled", formatBool(m.Resampled)).
		AddField("index", m.Index).
		AddField("forecast_mean", round3(m.ForecastMean)).
		AddField("analysis_mean", round3(m.AnalysisMean)).
		AddField("spread", round3(m.Spread)).
		AddField("ess", round3(m.ESS))
	if finite(m.Observation) {
		p = p.AddField("observation", round3(m.Observation))
	}
	for i, q := range m.Quantiles {
		if i < len(m.Probs) && finite(q) {
			p = p.AddField(quantileField(m.Probs[i]), round3(q))
		}
	}
	return p.SetTime(m.Time)
}

// RecordStep writes the step as one point.
func (s *InfluxSink) RecordStep(m coremetrics.StepMetric) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, StepPoint(m))
}

// RecordRun writes the "assim_run" measurement.
func (s *InfluxSink) RecordRun(m coremetrics.RunMetric) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	p := write.NewPointWithMeasurement("assim_run").
		AddTag("run_id", m.RunID).
		AddTag("command", m.Command).
		AddTag("status", runStatus(m)).
		AddField("steps", m.Steps).
		AddField("members", m.Members).
		AddField("duration_ms", m.Duration.Milliseconds())
	if m.Filter != "" {
		p = p.AddTag("filter", m.Filter)
	}
	if m.Metric != "" && !math.IsNaN(m.Score) {
		p = p.AddTag("metric", m.Metric).AddField("score", round3(m.Score))
	}
	if m.Err != "" {
		p = p.AddField("error", m.Err)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(m.Time))
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// quantileField names the field of probability p, e.g. "q05" or "q95".
func quantileField(p float64) string {
	return strings.ReplaceAll(export.QuantileColumn(p), ".", "_")
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
