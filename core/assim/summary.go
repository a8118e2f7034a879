package assim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary describes a discharge distribution over the ensemble.
type Summary struct {
	Mean float64 `json:"mean"`
	// Quantiles[i] is the Probs[i] quantile.
	Probs     []float64 `json:"probs"`
	Quantiles []float64 `json:"quantiles"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
}

// summarize computes the (weighted) mean, quantiles and range of q. A nil
// weights slice weighs all members equally.
func summarize(q, weights, probs []float64) Summary {
	if len(q) == 0 {
		return Summary{Mean: math.NaN()}
	}
	x := append([]float64(nil), q...)
	var w []float64
	if weights != nil {
		w = append([]float64(nil), weights...)
	}
	stat.SortWeighted(x, w)

	s := Summary{
		Mean:      stat.Mean(x, w),
		Probs:     append([]float64(nil), probs...),
		Quantiles: make([]float64, len(probs)),
		Min:       x[0],
		Max:       x[len(x)-1],
	}
	for i, p := range probs {
		s.Quantiles[i] = stat.Quantile(p, stat.Empirical, x, w)
	}
	return s
}
