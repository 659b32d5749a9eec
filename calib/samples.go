package calib

import (
	"math/rand"

	"github.com/epimath/go-epimod/model"
)

// GaussianSamples builds posterior-style sample chains around a fit:
// n draws per fitted parameter, normally distributed with a relative
// standard deviation. A full Bayesian calibration would produce these
// chains from an MCMC sampler; the shape of the collection is the
// same, so ensemble simulation works identically either way.
func GaussianSamples(fit *FitResult, relStd float64, n int, seed int64) model.Samples {
	rng := rand.New(rand.NewSource(seed))
	samples := make(model.Samples, len(fit.Names))
	for _, name := range fit.Names {
		mean := fit.ByName[name]
		sd := relStd * mean
		if sd < 0 {
			sd = -sd
		}
		chain := make([]float64, n)
		for i := range chain {
			chain[i] = mean + sd*rng.NormFloat64()
		}
		samples[name] = chain
	}
	return samples
}

// RandomDraw returns a draw function that, before each ensemble
// member, replaces every sampled parameter with a uniformly chosen
// element of its chain. Chains are indexed independently, matching how
// flattened MCMC chains are resampled.
func RandomDraw(seed int64) model.DrawFunc {
	rng := rand.New(rand.NewSource(seed))
	return func(params model.Params, samples model.Samples) model.Params {
		for name, chain := range samples {
			if len(chain) == 0 {
				continue
			}
			params[name] = model.Scalar(chain[rng.Intn(len(chain))])
		}
		return params
	}
}

// SequentialDraw returns a draw function that walks each chain in
// order, wrapping around; draw i of the ensemble uses sample i. Useful
// for reproducing a specific posterior slice.
func SequentialDraw() model.DrawFunc {
	i := 0
	return func(params model.Params, samples model.Samples) model.Params {
		for name, chain := range samples {
			if len(chain) == 0 {
				continue
			}
			params[name] = model.Scalar(chain[i%len(chain)])
		}
		i++
		return params
	}
}
