// Package dataset holds reflectivity curves: momentum transfer, reflectivity,
// its standard error and the resolution width of every point.
package dataset

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/gocarina/gocsv"
)

// ReflectDataset is a reflectivity curve. All slices have the same length.
type ReflectDataset struct {
	Q  []float64 // momentum transfer (Å⁻¹)
	R  []float64 // reflectivity
	DR []float64 // standard error of R
	DQ []float64 // resolution FWHM (Å⁻¹)
}

// Point is one row of a dataset, as written to CSV.
type Point struct {
	Q  float64 `csv:"q"`
	R  float64 `csv:"r"`
	DR float64 `csv:"dr"`
	DQ float64 `csv:"dq"`
}

// New checks the columns agree in length and copies them into a dataset.
func New(q, r, dr, dq []float64) (*ReflectDataset, error) {
	n := len(q)
	if len(r) != n || len(dr) != n || len(dq) != n {
		return nil, fmt.Errorf("dataset: mismatched columns q=%d r=%d dr=%d dq=%d", n, len(r), len(dr), len(dq))
	}
	return &ReflectDataset{
		Q:  append([]float64(nil), q...),
		R:  append([]float64(nil), r...),
		DR: append([]float64(nil), dr...),
		DQ: append([]float64(nil), dq...),
	}, nil
}

// Len returns the number of points.
func (d *ReflectDataset) Len() int { return len(d.Q) }

// Synthesise returns a copy of the dataset with one realisation of Gaussian
// noise, of width DR, added to R.
func (d *ReflectDataset) Synthesise(rng *rand.Rand) *ReflectDataset {
	out := &ReflectDataset{
		Q:  append([]float64(nil), d.Q...),
		R:  make([]float64, len(d.R)),
		DR: append([]float64(nil), d.DR...),
		DQ: append([]float64(nil), d.DQ...),
	}
	for i, r := range d.R {
		out.R[i] = r + d.DR[i]*rng.NormFloat64()
	}
	return out
}

// Points returns the dataset as rows.
func (d *ReflectDataset) Points() []Point {
	pts := make([]Point, d.Len())
	for i := range pts {
		pts[i] = Point{Q: d.Q[i], R: d.R[i], DR: d.DR[i], DQ: d.DQ[i]}
	}
	return pts
}

// WriteCSV writes q, r, dr and dq columns with a header.
func (d *ReflectDataset) WriteCSV(w io.Writer) error {
	if err := gocsv.Marshal(d.Points(), w); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

// ReadCSV reads a dataset written by WriteCSV.
func ReadCSV(r io.Reader) (*ReflectDataset, error) {
	var pts []Point
	if err := gocsv.Unmarshal(r, &pts); err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	d := &ReflectDataset{
		Q:  make([]float64, len(pts)),
		R:  make([]float64, len(pts)),
		DR: make([]float64, len(pts)),
		DQ: make([]float64, len(pts)),
	}
	for i, p := range pts {
		d.Q[i], d.R[i], d.DR[i], d.DQ[i] = p.Q, p.R, p.DR, p.DQ
	}
	return d, nil
}
