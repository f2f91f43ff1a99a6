package geometry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// WavelengthBins returns geometric bin edges covering [lo, hi] whose widths
// are close to rebin percent of their centre wavelength. The first bin is
// centred on lo and the last on hi.
func WavelengthBins(lo, hi, rebin float64) ([]float64, error) {
	if !(lo > 0) || !(hi > lo) {
		return nil, fmt.Errorf("%w: wavelength range [%v, %v]", ErrInvalidGeometry, lo, hi)
	}
	if !(rebin > 0) {
		return nil, fmt.Errorf("%w: rebin percentage %v must be positive", ErrInvalidGeometry, rebin)
	}
	frac := 1 + 0.01*rebin
	lowl := 2 * lo / (1 + frac)
	hiwl := frac * 2 * hi / (1 + frac)
	steps := int(math.Floor(math.Log10(hiwl/lowl)/math.Log10(frac))) + 1
	if steps < 2 {
		return nil, fmt.Errorf("%w: rebin %v%% leaves no bins in [%v, %v]", ErrInvalidGeometry, rebin, lo, hi)
	}
	edges := floats.LogSpan(make([]float64, steps), lowl, hiwl)
	return edges, nil
}

// ValidateEdges checks that edges define at least one bin and increase
// strictly.
func ValidateEdges(edges []float64) error {
	if len(edges) < 2 {
		return fmt.Errorf("%w: %d bin edges, need at least 2", ErrInvalidGeometry, len(edges))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return fmt.Errorf("%w: bin edges not strictly increasing at %d (%v after %v)",
				ErrInvalidGeometry, i, edges[i], edges[i-1])
		}
	}
	return nil
}

// Centres returns the midpoints of consecutive edges.
func Centres(edges []float64) []float64 {
	if len(edges) < 2 {
		return nil
	}
	c := make([]float64, len(edges)-1)
	for i := range c {
		c[i] = 0.5 * (edges[i] + edges[i+1])
	}
	return c
}

// Bin returns the index of the bin holding x, or -1 when x lies outside
// the edges. The last bin is closed on the right.
func Bin(edges []float64, x float64) int {
	n := len(edges)
	if n < 2 || !(x >= edges[0]) || x > edges[n-1] {
		return -1
	}
	if x == edges[n-1] {
		return n - 2
	}
	return sort.Search(n, func(i int) bool { return edges[i] > x }) - 1
}

// Q returns the momentum transfer (Å⁻¹) of a neutron of wavelength (Å)
// reflected at angle (degrees).
func Q(angle, wavelength float64) float64 {
	return 4 * math.Pi * math.Sin(angle*math.Pi/180) / wavelength
}

// Angle inverts Q for the angle in degrees.
func Angle(q, wavelength float64) float64 {
	return degrees(math.Asin(q * wavelength / (4 * math.Pi)))
}
