package dist

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Trapezoid is a trapezoidal distribution on [Min, Max]. The density rises
// linearly on the first fraction C of the range, is flat up to fraction D,
// then falls linearly to zero. C == D gives a triangle, C == 0 and D == 1 a
// uniform distribution.
type Trapezoid struct {
	Min, Max float64
	C, D     float64
}

// NewTrapezoid validates the shape parameters.
func NewTrapezoid(min, max, c, d float64) (Trapezoid, error) {
	if !(max > min) {
		return Trapezoid{}, fmt.Errorf("trapezoid: max %v must exceed min %v", max, min)
	}
	if c < 0 || d > 1 || c > d {
		return Trapezoid{}, fmt.Errorf("trapezoid: need 0 <= c <= d <= 1, got c=%v d=%v", c, d)
	}
	return Trapezoid{Min: min, Max: max, C: c, D: d}, nil
}

// height is the density of the plateau on the unit interval.
func (t Trapezoid) height() float64 {
	return 2 / (t.D - t.C + 1)
}

func (t Trapezoid) scale() float64 {
	return t.Max - t.Min
}

// Prob returns the probability density at x.
func (t Trapezoid) Prob(x float64) float64 {
	u := (x - t.Min) / t.scale()
	if u < 0 || u > 1 {
		return 0
	}
	h := t.height()
	var p float64
	switch {
	case u < t.C:
		p = h * u / t.C
	case u <= t.D:
		p = h
	default:
		p = h * (1 - u) / (1 - t.D)
	}
	return p / t.scale()
}

// CDF returns the cumulative probability at x.
func (t Trapezoid) CDF(x float64) float64 {
	u := (x - t.Min) / t.scale()
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		return 1
	}
	h := t.height()
	switch {
	case u < t.C:
		return h * u * u / (2 * t.C)
	case u <= t.D:
		return h * (u - t.C/2)
	default:
		return 1 - h*(1-u)*(1-u)/(2*(1-t.D))
	}
}

// Quantile inverts CDF in closed form.
func (t Trapezoid) Quantile(p float64) float64 {
	if p < 0 || p > 1 {
		panic("trapezoid: quantile out of bounds")
	}
	h := t.height()
	var u float64
	switch {
	case p < h*t.C/2:
		u = math.Sqrt(2 * t.C * p / h)
	case p <= 1-h*(1-t.D)/2:
		u = p/h + t.C/2
	default:
		u = 1 - math.Sqrt(2*(1-t.D)*(1-p)/h)
	}
	return t.Min + u*t.scale()
}

// Mean returns the mean of the distribution.
func (t Trapezoid) Mean() float64 {
	// first moment of the unit trapezoid
	c, d := t.C, t.D
	m := (d*d + d + 1 - c*c) / (3 * (d - c + 1))
	return t.Min + m*t.scale()
}

// Rand implements Sampler by inverse transform sampling.
func (t Trapezoid) Rand(rng *rand.Rand) float64 {
	return t.Quantile(rng.Float64())
}
