// Package geometry holds the collimation and binning relations of a
// time-of-flight reflectometer: slit widths for a requested footprint and
// angular resolution, the divergence those slits produce, wavelength bin
// edges and the momentum transfer of a neutron.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/tofsim/dist"
)

// FWHMToSigma is the FWHM of a Gaussian in units of its standard deviation.
const FWHMToSigma = 2.3548

// TrapezoidFWHM is the factor relating the full width of a uniform or
// trapezoidal resolution function to the FWHM of its Gaussian approximation.
const TrapezoidFWHM = 0.68

// ErrInvalidGeometry is wrapped by every geometry configuration failure.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Collimation describes the two-slit collimation ahead of the sample.
type Collimation struct {
	L12       float64 // slit 1 to slit 2 distance (mm)
	L2S       float64 // slit 2 to sample distance (mm)
	Footprint float64 // beam footprint on the sample (mm)
}

// Validate checks every length is positive.
func (c Collimation) Validate() error {
	if !(c.L12 > 0) || !(c.L2S > 0) || !(c.Footprint > 0) {
		return fmt.Errorf("%w: L12=%v L2S=%v footprint=%v must all be positive",
			ErrInvalidGeometry, c.L12, c.L2S, c.Footprint)
	}
	return nil
}

// OptimiseSlits returns the slit openings (mm) that illuminate the given
// footprint at angle (degrees) with fractional angular resolution dtheta
// (FWHM of the Gaussian approximation, e.g. 0.033).
//
// The slits satisfy
//
//	footprint·sin(θ)·L12 = s1·L2S + s2·(L12+L2S)
//	0.68·sqrt(s1² + s2²)/L12 = dtheta·θ
//
// and of the two solutions the one with the wider first slit is returned.
func OptimiseSlits(c Collimation, dtheta, angle float64) (s1, s2 float64, err error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	if !(dtheta > 0) || !(angle > 0) || angle >= 90 {
		return 0, 0, fmt.Errorf("%w: dtheta=%v angle=%v", ErrInvalidGeometry, dtheta, angle)
	}

	theta := angle * math.Pi / 180
	l1s := c.L12 + c.L2S
	width := c.Footprint * math.Sin(theta) * c.L12
	radius := dtheta * theta * c.L12 / TrapezoidFWHM

	// substitute s2 from the footprint line into the resolution circle
	qa := l1s*l1s + c.L2S*c.L2S
	qb := -2 * width * c.L2S
	qc := width*width - radius*radius*l1s*l1s
	disc := qb*qb - 4*qa*qc
	if disc < 0 {
		return 0, 0, fmt.Errorf("%w: footprint %v mm and resolution %v are incompatible at %v°",
			ErrInvalidGeometry, c.Footprint, dtheta, angle)
	}

	for _, root := range []float64{(-qb + math.Sqrt(disc)) / (2 * qa), (-qb - math.Sqrt(disc)) / (2 * qa)} {
		s1 = root
		s2 = (width - s1*c.L2S) / l1s
		if s1 > 0 && s2 > 0 {
			return s1, s2, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: no positive slit openings give footprint %v mm with resolution %v at %v°",
		ErrInvalidGeometry, c.Footprint, dtheta, angle)
}

// Divergence returns, in degrees, the Gaussian-equivalent FWHM dtheta of
// the angular divergence through slits s1 and s2 separated by l12, the
// half-width alpha of the full (penumbra) divergence and beta, the
// half-width of the flat top.
func Divergence(s1, s2, l12 float64) (dtheta, alpha, beta float64) {
	dtheta = TrapezoidFWHM * math.Sqrt(s1*s1+s2*s2) / l12
	alpha = (s1 + s2) / 2 / l12
	beta = math.Abs(s1-s2) / 2 / l12
	return degrees(dtheta), degrees(alpha), degrees(beta)
}

// AngularDistribution returns the distribution of angular offsets
// (degrees) from the nominal angle for slits s1 and s2. The trapezoid spans
// [-alpha, alpha] with a flat top of half-width beta; forceGaussian replaces
// it with a normal distribution of the same FWHM.
func AngularDistribution(s1, s2, l12 float64, forceGaussian bool) (dist.Sampler, error) {
	if !(s1 > 0) || !(s2 > 0) || !(l12 > 0) {
		return nil, fmt.Errorf("%w: slits %v, %v and separation %v must be positive", ErrInvalidGeometry, s1, s2, l12)
	}
	dtheta, alpha, beta := Divergence(s1, s2, l12)
	if forceGaussian {
		return dist.Gaussian{Sigma: dtheta / FWHMToSigma}, nil
	}
	c := (alpha - beta) / 2 / alpha
	d := (alpha + beta) / 2 / alpha
	tr, err := dist.NewTrapezoid(-alpha, alpha, c, d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return tr, nil
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
