package assim

import "gonum.org/v1/gonum/floats"

// EffectiveSampleSize returns 1 / sum(w^2) for normalised weights w.
func EffectiveSampleSize(w []float64) float64 {
	ss := floats.Dot(w, w)
	if ss == 0 {
		return 0
	}
	return 1 / ss
}

// SystematicResample selects len(w) indices in proportion to the normalised
// weights w using evenly spaced positions u0 + i/N, with u0 in [0, 1/N).
// Only members with positive weight are ever selected.
func SystematicResample(w []float64, u0 float64) []int {
	n := len(w)
	if n == 0 {
		return nil
	}
	cum := floats.CumSum(make([]float64, n), w)
	last := n - 1
	for last > 0 && w[last] <= 0 {
		last--
	}
	idx := make([]int, n)
	j := 0
	for i := range idx {
		pos := u0 + float64(i)/float64(n)
		for j < n && cum[j] <= pos {
			j++
		}
		if j >= n {
			// rounding left the final positions past the cumulative sum
			idx[i] = last
			continue
		}
		idx[i] = j
	}
	return idx
}
