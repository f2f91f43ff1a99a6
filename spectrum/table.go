// Package spectrum models the wavelength spectrum of a time-of-flight
// neutron beam. A Table holds tabulated intensity against wavelength and
// Empirical turns it into a sampleable probability distribution.
package spectrum

import (
	"errors"
	"fmt"
	"math"
)

// MinPoints is the smallest table a cubic interpolant can be fitted to.
const MinPoints = 4

// ErrInvalidTable is wrapped by every table validation failure.
var ErrInvalidTable = errors.New("invalid spectrum table")

// Point is one row of a spectrum table.
type Point struct {
	Wavelength     float64 `csv:"wavelength"`      // Å
	Intensity      float64 `csv:"intensity"`       // counts, arbitrary scale
	IntensityError float64 `csv:"intensity_error"` // one standard deviation
}

// Table is an immutable spectrum ordered by strictly increasing wavelength.
type Table struct {
	wavelength []float64
	intensity  []float64
	dintensity []float64
}

// NewTable validates points and copies them into a Table.
func NewTable(points []Point) (*Table, error) {
	if len(points) < MinPoints {
		return nil, fmt.Errorf("%w: %d points, need at least %d", ErrInvalidTable, len(points), MinPoints)
	}
	t := &Table{
		wavelength: make([]float64, len(points)),
		intensity:  make([]float64, len(points)),
		dintensity: make([]float64, len(points)),
	}
	for i, p := range points {
		if math.IsNaN(p.Wavelength) || math.IsInf(p.Wavelength, 0) {
			return nil, fmt.Errorf("%w: non-finite wavelength at row %d", ErrInvalidTable, i)
		}
		if i > 0 && !(p.Wavelength > points[i-1].Wavelength) {
			return nil, fmt.Errorf("%w: wavelength not strictly increasing at row %d (%v after %v)",
				ErrInvalidTable, i, p.Wavelength, points[i-1].Wavelength)
		}
		if p.Intensity < 0 || math.IsNaN(p.Intensity) || math.IsInf(p.Intensity, 0) {
			return nil, fmt.Errorf("%w: intensity %v at row %d must be finite and non-negative",
				ErrInvalidTable, p.Intensity, i)
		}
		t.wavelength[i] = p.Wavelength
		t.intensity[i] = p.Intensity
		t.dintensity[i] = p.IntensityError
	}
	return t, nil
}

// FromSlices builds a table from parallel wavelength and intensity slices.
func FromSlices(wavelength, intensity []float64) (*Table, error) {
	if len(wavelength) != len(intensity) {
		return nil, fmt.Errorf("%w: %d wavelengths but %d intensities",
			ErrInvalidTable, len(wavelength), len(intensity))
	}
	points := make([]Point, len(wavelength))
	for i := range wavelength {
		points[i] = Point{Wavelength: wavelength[i], Intensity: intensity[i]}
	}
	return NewTable(points)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.wavelength) }

// Wavelengths returns a copy of the wavelength column.
func (t *Table) Wavelengths() []float64 {
	return append([]float64(nil), t.wavelength...)
}

// Intensities returns a copy of the intensity column.
func (t *Table) Intensities() []float64 {
	return append([]float64(nil), t.intensity...)
}

// Support returns the smallest and largest tabulated wavelength.
func (t *Table) Support() (min, max float64) {
	return t.wavelength[0], t.wavelength[len(t.wavelength)-1]
}

// Points returns the table rows.
func (t *Table) Points() []Point {
	out := make([]Point, len(t.wavelength))
	for i := range out {
		out[i] = Point{
			Wavelength:     t.wavelength[i],
			Intensity:      t.intensity[i],
			IntensityError: t.dintensity[i],
		}
	}
	return out
}

// Window returns the rows with lo <= wavelength <= hi.
func (t *Table) Window(lo, hi float64) (*Table, error) {
	var points []Point
	for _, p := range t.Points() {
		if p.Wavelength >= lo && p.Wavelength <= hi {
			points = append(points, p)
		}
	}
	tw, err := NewTable(points)
	if err != nil {
		return nil, fmt.Errorf("window [%v, %v]: %w", lo, hi, err)
	}
	return tw, nil
}
