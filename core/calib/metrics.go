// Package calib scores simulated discharge against observations and adapts
// an external optimizer to the composite model.
package calib

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/vann/core/model"
)

// ErrNoData is returned when no valid pair remains after the warmup window.
var ErrNoData = errors.New("no observations after warmup")

// Metric names a skill score.
type Metric string

const (
	MetricNSE  Metric = "nse"
	MetricKGE  Metric = "kge"
	MetricRMSE Metric = "rmse"
	MetricBias Metric = "bias"
)

// ParseMetric maps a configuration name onto a Metric.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricNSE, MetricKGE, MetricRMSE, MetricBias:
		return m, nil
	}
	return "", fmt.Errorf("metric %q: %w", s, model.ErrUnknownKind)
}

// Evaluate computes metric m over sim and obs after skipping warmup steps.
func Evaluate(m Metric, sim, obs []float64, warmup int) (float64, error) {
	switch m {
	case MetricNSE:
		return NSE(sim, obs, warmup)
	case MetricKGE:
		return KGE(sim, obs, warmup)
	case MetricRMSE:
		return RMSE(sim, obs, warmup)
	case MetricBias:
		return Bias(sim, obs, warmup)
	}
	return math.NaN(), fmt.Errorf("metric %q: %w", m, model.ErrUnknownKind)
}

// Loss turns a metric value into a quantity to minimise.
func Loss(m Metric, v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	switch m {
	case MetricNSE, MetricKGE:
		return 1 - v
	case MetricBias:
		return math.Abs(v)
	}
	return v
}

// pairs drops the warmup prefix and every step where either value is
// missing.
func pairs(sim, obs []float64, warmup int) ([]float64, []float64, error) {
	if len(sim) != len(obs) {
		return nil, nil, fmt.Errorf("%d simulated vs %d observed: %w", len(sim), len(obs), model.ErrForcingLengthMismatch)
	}
	if warmup < 0 {
		return nil, nil, fmt.Errorf("negative warmup %d", warmup)
	}
	var s, o []float64
	for i := warmup; i < len(sim); i++ {
		if model.IsMissing(sim[i]) || model.IsMissing(obs[i]) {
			continue
		}
		s = append(s, sim[i])
		o = append(o, obs[i])
	}
	if len(o) == 0 {
		return nil, nil, ErrNoData
	}
	return s, o, nil
}

// NSE returns the Nash-Sutcliffe efficiency. It is NaN when the observations
// are constant.
func NSE(sim, obs []float64, warmup int) (float64, error) {
	s, o, err := pairs(sim, obs, warmup)
	if err != nil {
		return math.NaN(), err
	}
	mean := stat.Mean(o, nil)
	var num, den float64
	for i := range o {
		num += (s[i] - o[i]) * (s[i] - o[i])
		den += (o[i] - mean) * (o[i] - mean)
	}
	if den == 0 {
		return math.NaN(), nil
	}
	return 1 - num/den, nil
}

// KGE returns the Kling-Gupta efficiency built from correlation, variability
// ratio and bias ratio.
func KGE(sim, obs []float64, warmup int) (float64, error) {
	s, o, err := pairs(sim, obs, warmup)
	if err != nil {
		return math.NaN(), err
	}
	if len(o) < 2 {
		return math.NaN(), nil
	}
	ms, ss := stat.MeanStdDev(s, nil)
	mo, so := stat.MeanStdDev(o, nil)
	if so == 0 || mo == 0 || ss == 0 {
		return math.NaN(), nil
	}
	r := stat.Correlation(s, o, nil)
	alpha := ss / so
	beta := ms / mo
	return 1 - math.Sqrt((r-1)*(r-1)+(alpha-1)*(alpha-1)+(beta-1)*(beta-1)), nil
}

// RMSE returns the root mean square error.
func RMSE(sim, obs []float64, warmup int) (float64, error) {
	s, o, err := pairs(sim, obs, warmup)
	if err != nil {
		return math.NaN(), err
	}
	var sum float64
	for i := range o {
		sum += (s[i] - o[i]) * (s[i] - o[i])
	}
	return math.Sqrt(sum / float64(len(o))), nil
}

// Bias returns the mean error sim - obs.
func Bias(sim, obs []float64, warmup int) (float64, error) {
	s, o, err := pairs(sim, obs, warmup)
	if err != nil {
		return math.NaN(), err
	}
	return stat.Mean(s, nil) - stat.Mean(o, nil), nil
}
