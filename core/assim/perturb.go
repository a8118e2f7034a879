package assim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/vann/core/model"
)

// perturbForcing draws one perturbed replica of f. Band overrides receive
// the same factor and offset as the catchment values.
func perturbForcing(f model.Forcing, n NoiseConfig, src rand.Source) model.Forcing {
	out := f.Clone()
	if n.PrecSigma > 0 {
		k := lognormalFactor(n.PrecSigma, src)
		out.Prec *= k
		for i := range out.BandPrec {
			out.BandPrec[i] *= k
		}
	}
	if n.TairSigma > 0 {
		d := distuv.Normal{Mu: 0, Sigma: n.TairSigma, Src: src}.Rand()
		out.Tair += d
		for i := range out.BandTair {
			out.BandTair[i] += d
		}
	}
	if n.EpotSigma > 0 {
		out.Epot *= lognormalFactor(n.EpotSigma, src)
	}
	return out
}

// lognormalFactor returns a lognormal draw with unit mean.
func lognormalFactor(sigma float64, src rand.Source) float64 {
	return distuv.LogNormal{Mu: -sigma * sigma / 2, Sigma: sigma, Src: src}.Rand()
}

// perturbParams adds Gaussian noise scaled by each range width and reflects
// the result back into the admissible interval.
func perturbParams(p model.Params, bounds []model.Bound, rel float64, src rand.Source) model.Params {
	out := p.Clone()
	for i, b := range bounds {
		sd := rel * (b.Max - b.Min)
		if sd <= 0 || math.IsInf(sd, 0) {
			continue
		}
		out[i] = b.Reflect(out[i] + distuv.Normal{Mu: 0, Sigma: sd, Src: src}.Rand())
	}
	return out
}
