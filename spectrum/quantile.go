package spectrum

import (
	"errors"
	"math"
	"runtime"
	"sort"
	"sync"
)

// DefaultTolerance is the wavelength tolerance (Å) of ExactQuantile.
const DefaultTolerance = 1e-4

// Quantiler maps a cumulative probability in [0, 1] to a wavelength.
type Quantiler interface {
	Quantile(p float64) float64
}

// GridQuantile linearly interpolates a tabulated CDF. CDF must be
// non-decreasing and X strictly increasing.
type GridQuantile struct {
	X   []float64
	CDF []float64
}

// Quantile implements Quantiler.
func (g *GridQuantile) Quantile(p float64) float64 {
	n := len(g.CDF)
	if p <= g.CDF[0] {
		return g.X[0]
	}
	if p >= g.CDF[n-1] {
		return g.X[n-1]
	}
	// CDF[i-1] < p <= CDF[i]
	i := sort.SearchFloat64s(g.CDF, p)
	lo, hi := g.CDF[i-1], g.CDF[i]
	f := (p - lo) / (hi - lo)
	return g.X[i-1] + f*(g.X[i]-g.X[i-1])
}

// ExactQuantile solves CDF(x) = p by Brent's method on [Min, Max].
type ExactQuantile struct {
	CDF       func(float64) float64
	Min, Max  float64
	Tolerance float64
}

// Quantile implements Quantiler.
func (q *ExactQuantile) Quantile(p float64) float64 {
	if p <= 0 {
		return q.Min
	}
	if p >= 1 {
		return q.Max
	}
	// the bracket always holds for a CDF, and 100 iterations is far more
	// than the tolerance needs, so the best estimate is good either way
	x, _ := brent(func(x float64) float64 { return q.CDF(x) - p }, q.Min, q.Max, q.Tolerance, 100)
	return x
}

// QuantileAll maps every p through q using up to workers goroutines. The
// output order matches ps.
func QuantileAll(q Quantiler, ps []float64, workers int) []float64 {
	out := make([]float64, len(ps))
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(ps) {
		workers = len(ps)
	}
	if workers <= 1 {
		for i, p := range ps {
			out[i] = q.Quantile(p)
		}
		return out
	}

	per, rem := len(ps)/workers, len(ps)%workers
	var wg sync.WaitGroup
	start := 0
	for w := 0; w < workers; w++ {
		n := per
		if w < rem {
			n++
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = q.Quantile(ps[i])
			}
		}(start, start+n)
		start += n
	}
	wg.Wait()
	return out
}

var (
	errNotBracketed  = errors.New("root not bracketed")
	errNoConvergence = errors.New("root find did not converge")
)

// brent finds a root of f in [a, b] to within tol using inverse quadratic
// interpolation guarded by bisection.
func brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	const eps = 2.220446049250313e-16

	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if (fa > 0) == (fb > 0) {
		return 0, errNotBracketed
	}

	c, fc := a, fa
	d := b - a
	e := d
	for i := 0; i < maxIter; i++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*eps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		switch {
		case math.Abs(d) > tol1:
			b += d
		case xm > 0:
			b += tol1
		default:
			b -= tol1
		}
		fb = f(b)
	}
	return b, errNoConvergence
}
