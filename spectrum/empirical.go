package spectrum

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// DefaultGridPoints is the size of the precomputed CDF grid.
const DefaultGridPoints = 1000

// Continuous is a univariate distribution over wavelength.
type Continuous interface {
	Prob(x float64) float64
	CDF(x float64) float64
	Quantile(p float64) float64
	Rand(rng *rand.Rand) float64
	Sample(n int, rng *rand.Rand) []float64
}

// Empirical is the probability distribution described by a spectrum table.
//
// The density is a not-a-knot cubic spline through the area-normalised
// table. The spline does not integrate to exactly one, so Prob and CDF are
// divided by its integral over the support (the fudge factor). Quantile is
// answered by a Quantiler; the default interpolates a CDF grid computed at
// construction, trading accuracy bounded by the grid spacing for constant
// cost per sample.
type Empirical struct {
	min, max float64

	spline interp.NotAKnotCubic
	knots  []float64
	// cum[i] is the spline integral from min to knots[i]
	cum   []float64
	fudge float64

	gridX   []float64
	gridCDF []float64

	quantiler Quantiler
	workers   int
}

var _ Continuous = (*Empirical)(nil)

type options struct {
	gridPoints int
	exact      bool
	tolerance  float64
	workers    int
	logger     *slog.Logger
}

// Option configures NewEmpirical.
type Option func(*options)

// WithGridPoints sets the number of CDF grid points used by the grid
// quantile.
func WithGridPoints(n int) Option {
	return func(o *options) { o.gridPoints = n }
}

// WithExactQuantile replaces the grid quantile by a root find of the CDF to
// within tol. It is several orders of magnitude slower.
func WithExactQuantile(tol float64) Option {
	return func(o *options) {
		o.exact = true
		o.tolerance = tol
	}
}

// WithLogger sets the logger for construction warnings. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithWorkers spreads Sample's quantile evaluations over n goroutines.
// Only worthwhile with the exact quantile.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// NewEmpirical builds the distribution for table.
func NewEmpirical(t *Table, opts ...Option) (*Empirical, error) {
	o := options{gridPoints: DefaultGridPoints, tolerance: DefaultTolerance, workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.gridPoints < 2 {
		return nil, fmt.Errorf("spectrum: grid needs at least 2 points, got %d", o.gridPoints)
	}
	if o.exact && !(o.tolerance > 0) {
		return nil, fmt.Errorf("spectrum: quantile tolerance %v must be positive", o.tolerance)
	}

	x := t.Wavelengths()
	y := t.Intensities()

	area := integrate.Simpsons(x, y)
	if !(area > 0) {
		return nil, fmt.Errorf("%w: spectrum has no intensity", ErrInvalidTable)
	}
	floats.Scale(1/area, y)

	e := &Empirical{knots: x, workers: o.workers}
	e.min, e.max = t.Support()
	if err := e.spline.Fit(x, y); err != nil {
		return nil, fmt.Errorf("fitting spectrum spline: %w", err)
	}

	e.cum = make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		e.cum[i] = e.cum[i-1] + e.segment(x[i-1], x[i])
	}
	e.fudge = e.cum[len(x)-1]
	if !(e.fudge > 0) {
		return nil, fmt.Errorf("%w: spline integral %v is not positive", ErrInvalidTable, e.fudge)
	}

	e.gridX = floats.Span(make([]float64, o.gridPoints), e.min, e.max)
	e.gridCDF = e.CDFSlice(nil, e.gridX)
	// an overshooting spline can dip below zero; keep the grid monotonic
	clamped, drop := 0, 0.0
	for i := 1; i < len(e.gridCDF); i++ {
		if d := e.gridCDF[i-1] - e.gridCDF[i]; d > 0 {
			clamped++
			drop = max(drop, d)
			e.gridCDF[i] = e.gridCDF[i-1]
		}
	}
	if clamped > 0 {
		o.logger.Warn("spectrum density negative between knots",
			"clamped_grid_points", clamped,
			"max_cdf_drop", drop,
		)
	}

	if o.exact {
		e.quantiler = &ExactQuantile{CDF: e.CDF, Min: e.min, Max: e.max, Tolerance: o.tolerance}
	} else {
		e.quantiler = &GridQuantile{X: e.gridX, CDF: e.gridCDF}
	}
	return e, nil
}

// segment integrates the spline over [a, b] inside one knot interval.
// Simpson's rule is exact for a cubic.
func (e *Empirical) segment(a, b float64) float64 {
	return (b - a) / 6 * (e.spline.Predict(a) + 4*e.spline.Predict(0.5*(a+b)) + e.spline.Predict(b))
}

// antiderivative returns the spline integral from min to x, min <= x <= max.
func (e *Empirical) antiderivative(x float64) float64 {
	i := sort.SearchFloat64s(e.knots, x)
	if i < len(e.knots) && e.knots[i] == x {
		return e.cum[i]
	}
	return e.cum[i-1] + e.segment(e.knots[i-1], x)
}

// Support returns the wavelength range of the distribution.
func (e *Empirical) Support() (min, max float64) { return e.min, e.max }

// Fudge returns the spline integral used to normalise Prob and CDF.
func (e *Empirical) Fudge() float64 { return e.fudge }

// Quantiler returns the strategy answering Quantile.
func (e *Empirical) Quantiler() Quantiler { return e.quantiler }

// Prob returns the density at x, zero outside the support.
func (e *Empirical) Prob(x float64) float64 {
	if x < e.min || x > e.max {
		return 0
	}
	return e.spline.Predict(x) / e.fudge
}

// CDF returns the probability of a wavelength at or below x.
func (e *Empirical) CDF(x float64) float64 {
	if x <= e.min {
		return 0
	}
	if x >= e.max {
		return 1
	}
	return e.antiderivative(x) / e.fudge
}

// ProbSlice evaluates Prob at every xs, storing into dst if it is long
// enough.
func (e *Empirical) ProbSlice(dst, xs []float64) []float64 {
	dst = resize(dst, len(xs))
	for i, x := range xs {
		dst[i] = e.Prob(x)
	}
	return dst
}

// CDFSlice evaluates CDF at every xs, storing into dst if it is long enough.
func (e *Empirical) CDFSlice(dst, xs []float64) []float64 {
	dst = resize(dst, len(xs))
	for i, x := range xs {
		dst[i] = e.CDF(x)
	}
	return dst
}

// Quantile returns the wavelength below which a fraction p of the spectrum
// lies.
func (e *Empirical) Quantile(p float64) float64 {
	if p < 0 || p > 1 {
		panic("spectrum: quantile out of bounds")
	}
	return e.quantiler.Quantile(p)
}

// Rand draws one wavelength.
func (e *Empirical) Rand(rng *rand.Rand) float64 {
	return e.quantiler.Quantile(rng.Float64())
}

// Sample draws n wavelengths. The uniform variates are drawn in order
// before any quantile is taken, so the result does not depend on the number
// of workers.
func (e *Empirical) Sample(n int, rng *rand.Rand) []float64 {
	ps := make([]float64, n)
	for i := range ps {
		ps[i] = rng.Float64()
	}
	if e.workers > 1 {
		return QuantileAll(e.quantiler, ps, e.workers)
	}
	for i, p := range ps {
		ps[i] = e.quantiler.Quantile(p)
	}
	return ps
}

func resize(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}
