package telemetry

import (
	"log/slog"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Largest batch duration the timer resolves, in microseconds (one hour).
const maxBatchMicros = int64(time.Hour / time.Microsecond)

// PerfCollector tracks batch durations in an HDR histogram.
type PerfCollector struct {
	hist       *hdrhistogram.Histogram
	batchStart time.Time
	neutrons   int64
	busy       time.Duration
}

// NewPerfCollector creates a new performance collector.
func NewPerfCollector() *PerfCollector {
	return &PerfCollector{
		hist: hdrhistogram.New(1, maxBatchMicros, 3),
	}
}

// StartBatch begins timing a batch.
func (p *PerfCollector) StartBatch() {
	p.batchStart = time.Now()
}

// EndBatch finishes timing a batch of n neutrons and returns its duration.
func (p *PerfCollector) EndBatch(n int) time.Duration {
	d := time.Since(p.batchStart)
	p.Record(d, n)
	return d
}

// Record adds a batch duration directly. Durations beyond the histogram
// range are clamped to it.
func (p *PerfCollector) Record(d time.Duration, n int) {
	us := min(max(d.Microseconds(), 1), maxBatchMicros)
	// in range by construction
	_ = p.hist.RecordValue(us)
	p.neutrons += int64(n)
	p.busy += d
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Batches        int64   `csv:"batches"`
	Neutrons       int64   `csv:"neutrons"`
	P50BatchMS     float64 `csv:"p50_batch_ms"`
	P95BatchMS     float64 `csv:"p95_batch_ms"`
	P99BatchMS     float64 `csv:"p99_batch_ms"`
	MaxBatchMS     float64 `csv:"max_batch_ms"`
	MeanBatchMS    float64 `csv:"mean_batch_ms"`
	NeutronsPerSec float64 `csv:"neutrons_per_sec"`
}

// Stats computes aggregated statistics over all recorded batches.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Batches:  p.hist.TotalCount(),
		Neutrons: p.neutrons,
	}
	if s.Batches == 0 {
		return s
	}
	s.P50BatchMS = float64(p.hist.ValueAtQuantile(50)) / 1e3
	s.P95BatchMS = float64(p.hist.ValueAtQuantile(95)) / 1e3
	s.P99BatchMS = float64(p.hist.ValueAtQuantile(99)) / 1e3
	s.MaxBatchMS = float64(p.hist.Max()) / 1e3
	s.MeanBatchMS = p.hist.Mean() / 1e3
	if p.busy > 0 {
		s.NeutronsPerSec = float64(p.neutrons) / p.busy.Seconds()
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("batches", s.Batches),
		slog.Int64("neutrons", s.Neutrons),
		slog.Float64("p50_batch_ms", s.P50BatchMS),
		slog.Float64("p95_batch_ms", s.P95BatchMS),
		slog.Float64("p99_batch_ms", s.P99BatchMS),
		slog.Float64("max_batch_ms", s.MaxBatchMS),
		slog.Float64("neutrons_per_sec", s.NeutronsPerSec),
	)
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats(logger *slog.Logger) {
	logger.Info("perf", "stats", s)
}
