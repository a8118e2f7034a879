package assim

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// NoiseConfig describes the perturbation applied to the forcing of every
// member at every step. Precipitation and potential evapotranspiration are
// multiplied by mean-one lognormal factors; temperature gets additive
// Gaussian noise. ParamSigma perturbs member parameters once at ensemble
// start, as a fraction of each parameter's admissible range.
type NoiseConfig struct {
	PrecSigma  float64 `json:"prec_sigma"`
	TairSigma  float64 `json:"tair_sigma"`
	EpotSigma  float64 `json:"epot_sigma"`
	ParamSigma float64 `json:"param_sigma"`
}

// Observation error models.
const (
	ObsErrorFixed        = "fixed"
	ObsErrorProportional = "proportional"
)

// ObsErrorConfig describes the discharge observation error.
type ObsErrorConfig struct {
	// Model is "fixed" or "proportional".
	Model string `json:"model"`
	// Sigma is the standard deviation of the fixed model [mm/step].
	Sigma float64 `json:"sigma"`
	// Relative is the standard deviation as a fraction of the observation.
	Relative float64 `json:"relative"`
	// MinSigma is the lower bound of the proportional standard deviation.
	MinSigma float64 `json:"min_sigma"`
}

// StdDev returns the observation error standard deviation for obs.
func (c ObsErrorConfig) StdDev(obs float64) float64 {
	if c.Model == ObsErrorProportional {
		return math.Max(c.Relative*math.Abs(obs), c.MinSigma)
	}
	return c.Sigma
}

// ErrObsErrorSigma is returned when the observation error model can yield a
// zero standard deviation, which leaves the particle likelihood undefined.
var ErrObsErrorSigma = errors.New("observation error standard deviation must be positive")

// CheckLikelihood reports whether every observation gets a positive
// standard deviation.
func (c ObsErrorConfig) CheckLikelihood() error {
	switch c.Model {
	case ObsErrorFixed:
		if c.Sigma <= 0 {
			return fmt.Errorf("%w: obs_error.sigma is %v", ErrObsErrorSigma, c.Sigma)
		}
	case ObsErrorProportional:
		if c.MinSigma <= 0 {
			return fmt.Errorf("%w: obs_error.min_sigma is %v", ErrObsErrorSigma, c.MinSigma)
		}
	}
	return nil
}

// Variance returns the observation error variance R for obs.
func (c ObsErrorConfig) Variance(obs float64) float64 {
	sd := c.StdDev(obs)
	return sd * sd
}

// Config holds the ensemble settings shared by both filters.
type Config struct {
	Members int    `json:"members"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers"`
	// Noise is nil when unset; an explicit zero value disables perturbation.
	Noise    *NoiseConfig   `json:"noise"`
	ObsError ObsErrorConfig `json:"obs_error"`
	// Quantiles are the probabilities reported in every step summary.
	Quantiles []float64 `json:"quantiles"`
	// ResampleThreshold triggers particle resampling when the effective
	// sample size drops below this fraction of Members.
	ResampleThreshold float64 `json:"resample_threshold"`
}

// SetDefaults fills unset fields. The noise levels are illustrative values
// for daily catchment models, not calibrated defaults.
func (c *Config) SetDefaults() {
	if c.Members == 0 {
		c.Members = 100
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Noise == nil {
		c.Noise = &NoiseConfig{PrecSigma: 0.3, TairSigma: 1.0}
	}
	if c.ObsError.Model == "" {
		c.ObsError.Model = ObsErrorProportional
		if c.ObsError.Relative == 0 {
			c.ObsError.Relative = 0.1
		}
	}
	if c.ObsError.Model == ObsErrorProportional && c.ObsError.MinSigma == 0 {
		c.ObsError.MinSigma = 0.01
	}
	if len(c.Quantiles) == 0 {
		c.Quantiles = []float64{0.05, 0.5, 0.95}
	}
	if c.ResampleThreshold == 0 {
		c.ResampleThreshold = 0.5
	}
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.Members < 1 {
		return fmt.Errorf("members must be positive, got %d", c.Members)
	}
	if c.Noise == nil {
		return fmt.Errorf("noise must be set")
	}
	if c.Noise.PrecSigma < 0 || c.Noise.TairSigma < 0 || c.Noise.EpotSigma < 0 || c.Noise.ParamSigma < 0 {
		return fmt.Errorf("noise levels must be non-negative")
	}
	switch c.ObsError.Model {
	case ObsErrorFixed:
		if c.ObsError.Sigma < 0 {
			return fmt.Errorf("obs_error.sigma must be non-negative")
		}
	case ObsErrorProportional:
		if c.ObsError.Relative < 0 || c.ObsError.MinSigma < 0 {
			return fmt.Errorf("obs_error relative and min_sigma must be non-negative")
		}
	default:
		return fmt.Errorf("unknown observation error model %q", c.ObsError.Model)
	}
	for _, p := range c.Quantiles {
		if p < 0 || p > 1 {
			return fmt.Errorf("quantile %v outside [0, 1]", p)
		}
	}
	if c.ResampleThreshold < 0 || c.ResampleThreshold > 1 {
		return fmt.Errorf("resample_threshold must be in [0, 1], got %v", c.ResampleThreshold)
	}
	return nil
}
