package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/vann/config"
	"github.com/kilianp07/vann/core/factory"
	"github.com/kilianp07/vann/core/model"
)

// ForcingDef generates a forcing series by cycling each list over Steps.
type ForcingDef struct {
	Steps int       `json:"steps"`
	Prec  []float64 `json:"prec"`
	Tair  []float64 `json:"tair"`
	Epot  []float64 `json:"epot"`
}

// Series expands the definition.
func (d ForcingDef) Series() ([]model.Forcing, error) {
	if d.Steps <= 0 || len(d.Prec) == 0 {
		return nil, fmt.Errorf("forcing needs steps and prec")
	}
	out := make([]model.Forcing, d.Steps)
	for i := range out {
		out[i].Prec = cycle(d.Prec, i)
		out[i].Tair = cycle(d.Tair, i)
		out[i].Epot = cycle(d.Epot, i)
	}
	return out, nil
}

func cycle(v []float64, i int) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[i%len(v)]
}

// Truth holds the parameters generating the synthetic observations.
// Empty vectors select the filter model parameters.
type Truth struct {
	SnowParams  []float64 `json:"snow_params"`
	HydroParams []float64 `json:"hydro_params"`
}

// Expected are the assertions checked after the run.
type Expected struct {
	// MinUpdated is the minimum number of analysis steps.
	MinUpdated int `json:"min_updated"`
	// MaxRMSERatio bounds the analysis mean RMSE against the truth as a
	// fraction of the forecast mean RMSE. Zero disables the check.
	MaxRMSERatio float64 `json:"max_rmse_ratio"`
}

// Scenario is a synthetic twin experiment: observations are simulated
// from Truth and assimilated into Model with Filter.
type Scenario struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Model       config.ModelConfig  `json:"model"`
	Filter      config.FilterConfig `json:"filter"`
	Forcing     ForcingDef          `json:"forcing"`
	Truth       Truth               `json:"truth"`
	// ObsGaps are step indices without observation.
	ObsGaps  []int    `json:"obs_gaps"`
	Expected Expected `json:"expected"`
}

// Load reads a scenario file. Sections share the json field names of the
// application configuration.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var sc Scenario
	if err := factory.Decode(raw, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Model.SetDefaults()
	sc.Filter.SetDefaults()
	if err := sc.Model.Validate(); err != nil {
		return nil, fmt.Errorf("%s: model: %w", path, err)
	}
	if err := sc.Filter.Validate(); err != nil {
		return nil, fmt.Errorf("%s: filter: %w", path, err)
	}
	return &sc, nil
}
