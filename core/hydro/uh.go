package hydro

import "math"

// convolve routes inflow through a unit hydrograph store. store[0] holds
// the volume released at the end of the current step.
func convolve(store, ord []float64, inflow float64) {
	n := len(store)
	for k := 0; k < n-1; k++ {
		store[k] = store[k+1] + ord[k]*inflow
	}
	store[n-1] = ord[n-1] * inflow
}

// gr4jOrdinates returns the ordinates of the two GR4J unit hydrographs for
// a base time x4 expressed in time steps, padded with zeros to n1 and n2.
func gr4jOrdinates(x4 float64, n1, n2 int) (ord1, ord2 []float64) {
	ord1 = make([]float64, n1)
	for k := range ord1 {
		ord1[k] = ss1(float64(k+1), x4) - ss1(float64(k), x4)
	}
	ord2 = make([]float64, n2)
	for k := range ord2 {
		ord2[k] = ss2(float64(k+1), x4) - ss2(float64(k), x4)
	}
	return ord1, ord2
}

func ss1(t, x4 float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t < x4:
		return math.Pow(t/x4, 2.5)
	default:
		return 1
	}
}

func ss2(t, x4 float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t <= x4:
		return 0.5 * math.Pow(t/x4, 2.5)
	case t < 2*x4:
		return 1 - 0.5*math.Pow(2-t/x4, 2.5)
	default:
		return 1
	}
}

// triangularWeights returns the HBV transfer function weights for a base
// length maxbas expressed in time steps, padded with zeros to n.
func triangularWeights(maxbas float64, n int) []float64 {
	w := make([]float64, n)
	cdf := func(t float64) float64 {
		switch {
		case t <= 0:
			return 0
		case t <= maxbas/2:
			return 2 * t * t / (maxbas * maxbas)
		case t < maxbas:
			d := maxbas - t
			return 1 - 2*d*d/(maxbas*maxbas)
		default:
			return 1
		}
	}
	for k := range w {
		w[k] = cdf(float64(k+1)) - cdf(float64(k))
	}
	return w
}
