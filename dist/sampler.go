// Package dist provides the univariate samplers used to jitter neutron
// trajectories: trapezoidal and Gaussian angular divergence, and uniform
// wavelength generation.
package dist

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws a single variate using the supplied generator.
// Implementations hold no generator of their own so that every call site
// controls the random stream explicitly.
type Sampler interface {
	Rand(rng *rand.Rand) float64
}

// Gaussian is a zero-mean normal sampler with standard deviation Sigma.
type Gaussian struct {
	Sigma float64
}

// Rand implements Sampler.
func (g Gaussian) Rand(rng *rand.Rand) float64 {
	return distuv.Normal{Mu: 0, Sigma: g.Sigma, Src: rng}.Rand()
}

// Uniform samples evenly on [Min, Max).
type Uniform struct {
	Min, Max float64
}

// Rand implements Sampler.
func (u Uniform) Rand(rng *rand.Rand) float64 {
	return distuv.Uniform{Min: u.Min, Max: u.Max, Src: rng}.Rand()
}

// Prob returns the uniform density at x.
func (u Uniform) Prob(x float64) float64 {
	return distuv.Uniform{Min: u.Min, Max: u.Max}.Prob(x)
}
