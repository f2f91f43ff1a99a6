package telemetry

import (
	"time"

	"github.com/pthm-cable/tofsim/simulator"
)

// Collector turns successive simulator snapshots into BatchStats.
type Collector struct {
	kernelCap int
	batch     int
	prev      simulator.State
}

// NewCollector creates a collector. kernelCap is the per-bin kernel limit
// used to count full kernel bins.
func NewCollector(kernelCap int) *Collector {
	return &Collector{kernelCap: kernelCap}
}

// Observe records the state after a batch of n neutrons that took elapsed.
func (c *Collector) Observe(st simulator.State, n int, elapsed time.Duration) BatchStats {
	c.batch++
	s := BatchStats{
		Batch:     c.batch,
		Neutrons:  n,
		Samples:   st.Samples,
		ElapsedMS: float64(elapsed.Microseconds()) / 1000,
	}

	for i := range st.Direct {
		var prevDirect, prevReflected uint64
		if i < len(c.prev.Direct) {
			prevDirect, prevReflected = c.prev.Direct[i], c.prev.Reflected[i]
		}
		s.Binned += st.Direct[i] - prevDirect
		s.Reflected += st.Reflected[i] - prevReflected
	}
	if s.Binned > 0 {
		s.Acceptance = float64(s.Reflected) / float64(s.Binned)
	}
	if n > 0 {
		s.Coverage = float64(s.Binned) / float64(n)
	}

	s.CountsMean, s.CountsP10, s.CountsP50, s.CountsP90, s.EmptyBins = ComputeCountStats(st.Direct)
	for _, k := range st.KernelSizes {
		if k >= c.kernelCap {
			s.KernelFullBins++
		}
	}

	c.prev = st
	return s
}
