package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/vann/core/assim"
)

func sampleResults() []assim.StepResult {
	probs := []float64{0.05, 0.5, 0.95}
	return []assim.StepResult{
		{
			Index:       0,
			Observation: math.NaN(),
			Forecast:    assim.Summary{Mean: 1, Probs: probs, Quantiles: []float64{0.5, 1, 1.5}, Min: 0.4, Max: 1.6},
			Analysis:    assim.Summary{Mean: 1, Probs: probs, Quantiles: []float64{0.5, 1, 1.5}, Min: 0.4, Max: 1.6},
			ESS:         50,
		},
		{
			Index:       1,
			Observation: 2,
			Forecast:    assim.Summary{Mean: 1.5, Probs: probs, Quantiles: []float64{1, 1.5, 2}, Min: 0.9, Max: 2.1},
			Analysis:    assim.Summary{Mean: 1.8, Probs: probs, Quantiles: []float64{1.6, 1.8, 2}, Min: 1.5, Max: 2.1},
			Updated:     true,
			ESS:         50,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults(), nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "index,observation,forecast_mean,analysis_mean,analysis_min,analysis_max,q05,q50,q95,updated,skipped,ess,resampled", lines[0])
	assert.Equal(t, "0,,1,1,0.4,1.6,0.5,1,1.5,false,false,50,false", lines[1])
	assert.Equal(t, "1,2,1.5,1.8,1.5,2.1,1.6,1.8,2,true,false,50,false", lines[2])
}

func TestWriteCSV_WithTime(t *testing.T) {
	times := []time.Time{
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults(), times))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "index,time,observation"))
	assert.True(t, strings.HasPrefix(lines[2], "1,2020-01-02T00:00:00Z,2,"))
}

func TestWriteJSON_MissingObservationIsNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResults(), nil))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Nil(t, out[0]["observation"])
	assert.Equal(t, 2.0, out[1]["observation"])
	assert.NotContains(t, out[0], "time")
	analysis, ok := out[1]["analysis"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.8, analysis["mean"])
}

func TestWriteSeriesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, []float64{0.25, 0.5}, []float64{0.3, math.NaN()}, nil))
	assert.Equal(t, "index,q_sim,q_obs\n0,0.25,0.3\n1,0.5,\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSeriesCSV(&buf, []float64{1}, nil, nil))
	assert.Equal(t, "index,q_sim\n0,1\n", buf.String())

	assert.Error(t, WriteSeriesCSV(&buf, []float64{1}, []float64{1, 2}, nil))
}

func TestQuantileColumn(t *testing.T) {
	assert.Equal(t, "q05", QuantileColumn(0.05))
	assert.Equal(t, "q50", QuantileColumn(0.5))
	assert.Equal(t, "q95", QuantileColumn(0.95))
	assert.Equal(t, "q02.5", QuantileColumn(0.025))
	assert.Equal(t, "q0", QuantileColumn(0))
}
