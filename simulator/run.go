package simulator

import (
	"math/rand/v2"

	"github.com/pthm-cable/tofsim/geometry"
)

// chunk holds per-neutron scratch for one model evaluation.
type chunk struct {
	angle      []float64
	wavelength []float64
	criterion  []float64
	noise      []float64
	q          []float64
	dq         []float64 // always zero
	bin        []int
}

func (c *chunk) resize(n int) {
	if cap(c.q) < n {
		c.angle = make([]float64, n)
		c.wavelength = make([]float64, n)
		c.criterion = make([]float64, n)
		c.noise = make([]float64, n)
		c.q = make([]float64, n)
		c.dq = make([]float64, n)
		c.bin = make([]int, n)
		return
	}
	c.angle = c.angle[:n]
	c.wavelength = c.wavelength[:n]
	c.criterion = c.criterion[:n]
	c.noise = c.noise[:n]
	c.q = c.q[:n]
	c.dq = c.dq[:n]
	c.bin = c.bin[:n]
}

// Run samples n neutrons from rng and adds them to the accumulated
// histograms.
//
// Every neutron consumes its angle, wavelength, acceptance and chopper
// variates from rng in that order, so Run(a) followed by Run(b) on a
// continuing generator accumulates exactly what Run(a+b) would.
func (s *Simulator) Run(n int, rng *rand.Rand) {
	for done := 0; done < n; {
		m := min(s.opts.ChunkSize, n-done)
		s.runChunk(m, rng)
		done += m
	}
}

func (s *Simulator) runChunk(n int, rng *rand.Rand) {
	c := &s.scratch
	c.resize(n)

	for i := 0; i < n; i++ {
		c.angle[i] = s.opts.Angle + s.angular.Rand(rng)
		c.wavelength[i] = s.wavelength.Rand(rng)
		c.criterion[i] = rng.Float64()
		if s.opts.ForceGaussian {
			c.noise[i] = rng.NormFloat64()
		} else {
			c.noise[i] = rng.Float64() - 0.5
		}
		c.q[i] = geometry.Q(c.angle[i], c.wavelength[i])
	}

	r := s.model.Reflectivity(c.q, c.dq)
	if len(r) != n {
		panic("simulator: reflectivity model returned the wrong number of points")
	}

	degenerate := 0
	for i := 0; i < n; i++ {
		if !(r[i] >= 0 && r[i] <= 1) {
			degenerate++
		}
		jittered := c.wavelength[i] * (1 + s.jitter*c.noise[i])
		b := geometry.Bin(s.edges, jittered)
		c.bin[i] = b
		if b < 0 {
			continue
		}
		s.direct[b]++
		if c.criterion[i] < r[i] {
			s.reflected[b]++
		}
	}
	if degenerate > 0 {
		// left uncorrected: such values bias acceptance
		s.log.Warn("reflectivity outside [0, 1]", "points", degenerate, "chunk", n)
	}

	s.updateKernel(c.q, c.bin)
	s.samples += uint64(n)
}
