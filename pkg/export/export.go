package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/vann/core/assim"
)

// Step is the JSON form of one assimilation step. Missing observations
// are encoded as null.
type Step struct {
	Index       int           `json:"index"`
	Time        *time.Time    `json:"time,omitempty"`
	Observation *float64      `json:"observation"`
	Forecast    assim.Summary `json:"forecast"`
	Analysis    assim.Summary `json:"analysis"`
	Updated     bool          `json:"updated"`
	Skipped     bool          `json:"skipped"`
	ESS         float64       `json:"ess"`
	Resampled   bool          `json:"resampled"`
}

// Steps converts filter results. times may be nil or aligned with results.
func Steps(results []assim.StepResult, times []time.Time) []Step {
	out := make([]Step, len(results))
	for i, r := range results {
		out[i] = Step{
			Index:       r.Index,
			Observation: optional(r.Observation),
			Forecast:    r.Forecast,
			Analysis:    r.Analysis,
			Updated:     r.Updated,
			Skipped:     r.Skipped,
			ESS:         r.ESS,
			Resampled:   r.Resampled,
		}
		if i < len(times) {
			ts := times[i]
			out[i].Time = &ts
		}
	}
	return out
}

// WriteJSON writes the filter results to w as a JSON array.
func WriteJSON(w io.Writer, results []assim.StepResult, times []time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Steps(results, times))
}

// WriteCSV writes one row per step with the analysis quantiles as columns.
func WriteCSV(w io.Writer, results []assim.StepResult, times []time.Time) error {
	cw := csv.NewWriter(w)
	header := []string{"index"}
	if len(times) > 0 {
		header = append(header, "time")
	}
	header = append(header, "observation", "forecast_mean", "analysis_mean", "analysis_min", "analysis_max")
	var probs []float64
	if len(results) > 0 {
		probs = results[0].Analysis.Probs
	}
	for _, p := range probs {
		header = append(header, QuantileColumn(p))
	}
	header = append(header, "updated", "skipped", "ess", "resampled")
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, r := range results {
		rec := []string{strconv.Itoa(r.Index)}
		if len(times) > 0 {
			ts := ""
			if i < len(times) {
				ts = times[i].Format(time.RFC3339)
			}
			rec = append(rec, ts)
		}
		rec = append(rec,
			formatFloat(r.Observation),
			formatFloat(r.Forecast.Mean),
			formatFloat(r.Analysis.Mean),
			formatFloat(r.Analysis.Min),
			formatFloat(r.Analysis.Max),
		)
		for j := range probs {
			v := math.NaN()
			if j < len(r.Analysis.Quantiles) {
				v = r.Analysis.Quantiles[j]
			}
			rec = append(rec, formatFloat(v))
		}
		rec = append(rec,
			strconv.FormatBool(r.Updated),
			strconv.FormatBool(r.Skipped),
			formatFloat(r.ESS),
			strconv.FormatBool(r.Resampled),
		)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesCSV writes a simulated discharge series next to the optional
// observations.
func WriteSeriesCSV(w io.Writer, q, obs []float64, times []time.Time) error {
	if obs != nil && len(obs) != len(q) {
		return fmt.Errorf("%d simulated vs %d observed values", len(q), len(obs))
	}
	cw := csv.NewWriter(w)
	header := []string{"index"}
	if len(times) > 0 {
		header = append(header, "time")
	}
	header = append(header, "q_sim")
	if obs != nil {
		header = append(header, "q_obs")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, v := range q {
		rec := []string{strconv.Itoa(i)}
		if len(times) > 0 {
			ts := ""
			if i < len(times) {
				ts = times[i].Format(time.RFC3339)
			}
			rec = append(rec, ts)
		}
		rec = append(rec, formatFloat(v))
		if obs != nil {
			rec = append(rec, formatFloat(obs[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// QuantileColumn names the column of probability p, e.g. q05 for 0.05.
func QuantileColumn(p float64) string {
	v := math.Round(p*10000) / 100
	pct := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 10 && !strings.HasPrefix(pct, "0") {
		pct = "0" + pct
	}
	return "q" + pct
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
