package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BatchStats holds aggregated statistics for one Run call.
type BatchStats struct {
	Batch     int    `csv:"batch"`
	Neutrons  int    `csv:"neutrons"`  // drawn in this batch
	Samples   uint64 `csv:"samples"`   // drawn so far
	Binned    uint64 `csv:"binned"`    // landed in a wavelength bin this batch
	Reflected uint64 `csv:"reflected"` // of those, reflected

	Acceptance float64 `csv:"acceptance"` // reflected / binned over the batch
	Coverage   float64 `csv:"coverage"`   // binned / neutrons over the batch

	// Direct beam counts per bin, accumulated
	CountsMean float64 `csv:"counts_mean"`
	CountsP10  float64 `csv:"counts_p10"`
	CountsP50  float64 `csv:"counts_p50"`
	CountsP90  float64 `csv:"counts_p90"`
	EmptyBins  int     `csv:"empty_bins"`

	// Resolution kernel fill
	KernelFullBins int `csv:"kernel_full_bins"`

	ElapsedMS float64 `csv:"elapsed_ms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeCountStats calculates mean and percentiles of per-bin counts, and
// how many bins are empty.
func ComputeCountStats(counts []uint64) (mean, p10, p50, p90 float64, empty int) {
	if len(counts) == 0 {
		return 0, 0, 0, 0, 0
	}
	sorted := make([]float64, len(counts))
	for i, c := range counts {
		sorted[i] = float64(c)
		if c == 0 {
			empty++
		}
	}
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, p10, p50, p90, empty
}

// LogValue implements slog.LogValuer for structured logging.
func (s BatchStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("batch", s.Batch),
		slog.Int("neutrons", s.Neutrons),
		slog.Uint64("samples", s.Samples),
		slog.Uint64("binned", s.Binned),
		slog.Uint64("reflected", s.Reflected),
		slog.Float64("acceptance", s.Acceptance),
		slog.Float64("coverage", s.Coverage),
		slog.Float64("counts_mean", s.CountsMean),
		slog.Float64("counts_p10", s.CountsP10),
		slog.Float64("counts_p50", s.CountsP50),
		slog.Float64("counts_p90", s.CountsP90),
		slog.Int("empty_bins", s.EmptyBins),
		slog.Int("kernel_full_bins", s.KernelFullBins),
		slog.Float64("elapsed_ms", s.ElapsedMS),
	)
}

// LogStats logs the batch stats using slog.
func (s BatchStats) LogStats(logger *slog.Logger) {
	logger.Info("batch", "stats", s)
}
