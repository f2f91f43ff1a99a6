package reflect

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	fwhmToSigma = 2.3548
	// smearing integrates over ±smearSigmas standard deviations
	smearSigmas = 3.5
	smearPoints = 51
)

// smear convolves f with a Gaussian of the given FWHM centred on q.
func smear(f func(float64) float64, q, fwhm float64) float64 {
	sigma := fwhm / fwhmToSigma
	lo := math.Max(q-smearSigmas*sigma, 0)
	hi := q + smearSigmas*sigma

	weighted := func(x float64) float64 {
		z := (x - q) / sigma
		return f(x) * math.Exp(-0.5*z*z)
	}
	gauss := func(x float64) float64 {
		z := (x - q) / sigma
		return math.Exp(-0.5 * z * z)
	}
	// normalise over the truncated window so a flat curve stays flat
	return quad.Fixed(weighted, lo, hi, smearPoints, quad.Legendre{}, 0) /
		quad.Fixed(gauss, lo, hi, smearPoints, quad.Legendre{}, 0)
}
