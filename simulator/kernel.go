package simulator

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultKernelBins is the number of q bins per resolution kernel row.
const DefaultKernelBins = 31

// qStore keeps the exact q of neutrons that landed in one wavelength bin,
// up to limit samples.
type qStore struct {
	samples []float32
	limit   int
}

func (st *qStore) full() bool { return len(st.samples) >= st.limit }

// updateKernel records q for every binned neutron of the chunk. Bins stop
// accepting samples at their cap and the whole update is skipped once every
// bin is full.
func (s *Simulator) updateKernel(q []float64, bins []int) {
	if s.fullBins == len(s.kernel) {
		return
	}
	for i, b := range bins {
		if b < 0 {
			continue
		}
		st := &s.kernel[b]
		if st.full() {
			continue
		}
		st.samples = append(st.samples, float32(q[i]))
		if st.full() {
			s.fullBins++
		}
	}
}

// KernelRow is the normalised q distribution of one wavelength bin.
type KernelRow struct {
	Q       []float64 // histogram bin centres
	Density []float64 // integrates to one over Q
}

// Kernel is the resolution kernel of every point, lowest q first. Rows of
// bins that received no neutrons are empty.
type Kernel struct {
	Rows  []KernelRow
	Width int
}

// At returns element j of row i. ok is false where the row holds no value.
func (k Kernel) At(i, j int) (q, density float64, ok bool) {
	if i < 0 || i >= len(k.Rows) {
		return 0, 0, false
	}
	r := k.Rows[i]
	if j < 0 || j >= len(r.Q) {
		return 0, 0, false
	}
	return r.Q[j], r.Density[j], true
}

// ResolutionKernel histograms the stored q samples of each wavelength bin
// into bins density bins spanning their range. A non-positive bins means
// DefaultKernelBins.
func (s *Simulator) ResolutionKernel(bins int) Kernel {
	if bins <= 0 {
		bins = DefaultKernelBins
	}
	k := Kernel{Rows: make([]KernelRow, len(s.kernel))}
	for i := range s.kernel {
		// wavelength order is descending q
		row := kernelRow(s.kernel[len(s.kernel)-1-i].samples, bins)
		k.Rows[i] = row
		k.Width = max(k.Width, len(row.Q))
	}
	return k
}

func kernelRow(samples []float32, bins int) KernelRow {
	if len(samples) == 0 {
		return KernelRow{}
	}
	xs := make([]float64, len(samples))
	for i, v := range samples {
		xs[i] = float64(v)
	}
	slices.Sort(xs)

	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	dividers := append([]float64(nil), edges...)
	// the largest sample belongs to the last bin
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, xs, nil)

	row := KernelRow{Q: make([]float64, bins), Density: make([]float64, bins)}
	n := float64(len(xs))
	for j := range counts {
		w := edges[j+1] - edges[j]
		row.Q[j] = (edges[j] + edges[j+1]) / 2
		row.Density[j] = counts[j] / (n * w)
	}
	return row
}
