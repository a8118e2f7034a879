package model

import (
	"fmt"
	"math"
)

// Forcing holds the exogenous inputs of one time step. Fluxes are in mm per
// time step and temperature in degrees Celsius. BandTair and BandPrec, when
// set, override Tair and Prec per elevation band.
type Forcing struct {
	Prec     float64   `json:"prec"`
	Tair     float64   `json:"tair"`
	Epot     float64   `json:"epot"`
	BandTair []float64 `json:"band_tair,omitempty"`
	BandPrec []float64 `json:"band_prec,omitempty"`
}

// Band returns precipitation and temperature for elevation band i.
func (f Forcing) Band(i int) (prec, tair float64) {
	prec, tair = f.Prec, f.Tair
	if i < len(f.BandPrec) {
		prec = f.BandPrec[i]
	}
	if i < len(f.BandTair) {
		tair = f.BandTair[i]
	}
	return prec, tair
}

// Clone returns a deep copy of f.
func (f Forcing) Clone() Forcing {
	cp := f
	if f.BandTair != nil {
		cp.BandTair = append([]float64(nil), f.BandTair...)
	}
	if f.BandPrec != nil {
		cp.BandPrec = append([]float64(nil), f.BandPrec...)
	}
	return cp
}

// NewForcings zips precipitation, temperature and potential evapotranspiration
// series. A nil tair or epot series is treated as all zeros.
func NewForcings(prec, tair, epot []float64) ([]Forcing, error) {
	n := len(prec)
	if tair != nil && len(tair) != n {
		return nil, fmt.Errorf("tair has %d records, prec %d: %w", len(tair), n, ErrForcingLengthMismatch)
	}
	if epot != nil && len(epot) != n {
		return nil, fmt.Errorf("epot has %d records, prec %d: %w", len(epot), n, ErrForcingLengthMismatch)
	}
	out := make([]Forcing, n)
	for i := range out {
		out[i].Prec = prec[i]
		if tair != nil {
			out[i].Tair = tair[i]
		}
		if epot != nil {
			out[i].Epot = epot[i]
		}
	}
	return out, nil
}

// ZeroEpot returns a potential evapotranspiration series of n zeros.
func ZeroEpot(n int) []float64 { return make([]float64, n) }

// Missing is the encoding of an absent observation.
var Missing = math.NaN()

// IsMissing reports whether an observation value is absent.
func IsMissing(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }

// CheckAligned verifies that observations share the forcing time index.
func CheckAligned(forcings []Forcing, obs []float64) error {
	if len(forcings) != len(obs) {
		return fmt.Errorf("%d forcing records vs %d observations: %w", len(forcings), len(obs), ErrForcingLengthMismatch)
	}
	return nil
}
