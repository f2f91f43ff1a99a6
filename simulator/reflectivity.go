package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pthm-cable/tofsim/dataset"
)

// MeanReflectivity returns reflected over direct counts for every bin, in
// increasing q order, with Poisson errors propagated and dq set to the
// fractional resolution times q. It fails with an error wrapping
// dataset.ErrZeroDivisor when any bin holds no direct beam neutrons; the
// reported indices are wavelength bins.
func (s *Simulator) MeanReflectivity() (*dataset.ReflectDataset, error) {
	n := len(s.direct)
	ref := make([]float64, n)
	dref := make([]float64, n)
	dir := make([]float64, n)
	ddir := make([]float64, n)
	for i := 0; i < n; i++ {
		ref[i] = float64(s.reflected[i])
		dir[i] = float64(s.direct[i])
		dref[i] = math.Sqrt(ref[i])
		ddir[i] = math.Sqrt(dir[i])
	}
	r, dr, err := dataset.EPDiv(ref, dref, dir, ddir)
	if err != nil {
		return nil, fmt.Errorf("simulator: reflectivity after %d neutrons: %w", s.samples, err)
	}

	res := s.Resolution()
	q := make([]float64, n)
	dq := make([]float64, n)
	rq := make([]float64, n)
	drq := make([]float64, n)
	for i := 0; i < n; i++ {
		j := n - 1 - i
		q[i] = s.q[j]
		dq[i] = res * s.q[j]
		rq[i] = r[j]
		drq[i] = dr[j]
	}
	return dataset.New(q, rq, drq, dq)
}

// Reflectivity returns a synthetic measurement: MeanReflectivity with every
// point redrawn from a normal distribution of its own uncertainty.
func (s *Simulator) Reflectivity(rng *rand.Rand) (*dataset.ReflectDataset, error) {
	mean, err := s.MeanReflectivity()
	if err != nil {
		return nil, err
	}
	return mean.Synthesise(rng), nil
}
