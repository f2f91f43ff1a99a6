package telemetry

import (
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/tofsim/simulator"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeCountStats(t *testing.T) {
	mean, p10, p50, p90, empty := ComputeCountStats([]uint64{10, 0, 30, 20, 0, 40, 50, 60, 70, 80})

	if math.Abs(mean-36) > 1e-12 {
		t.Errorf("mean = %v, want 36", mean)
	}
	if math.Abs(p10) > 1e-12 {
		t.Errorf("p10 = %v, want 0", p10)
	}
	if math.Abs(p50-35) > 1e-12 {
		t.Errorf("p50 = %v, want 35", p50)
	}
	if math.Abs(p90-71) > 1e-12 {
		t.Errorf("p90 = %v, want 71", p90)
	}
	if empty != 2 {
		t.Errorf("empty = %d, want 2", empty)
	}
}

func TestComputeCountStatsEmpty(t *testing.T) {
	mean, p10, p50, p90, empty := ComputeCountStats(nil)

	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 || empty != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestCollectorBatchDeltas(t *testing.T) {
	c := NewCollector(5)

	first := c.Observe(simulator.State{
		Direct:      []uint64{4, 6},
		Reflected:   []uint64{1, 3},
		KernelSizes: []int{4, 5},
		Samples:     12,
	}, 12, 2*time.Millisecond)

	if first.Batch != 1 || first.Binned != 10 || first.Reflected != 4 {
		t.Errorf("first batch = %+v", first)
	}
	if math.Abs(first.Acceptance-0.4) > 1e-12 || math.Abs(first.Coverage-10.0/12) > 1e-12 {
		t.Errorf("acceptance %v, coverage %v", first.Acceptance, first.Coverage)
	}
	if first.KernelFullBins != 1 {
		t.Errorf("KernelFullBins = %d, want 1", first.KernelFullBins)
	}
	if first.ElapsedMS != 2 {
		t.Errorf("ElapsedMS = %v, want 2", first.ElapsedMS)
	}

	second := c.Observe(simulator.State{
		Direct:      []uint64{9, 9},
		Reflected:   []uint64{1, 5},
		KernelSizes: []int{5, 5},
		Samples:     20,
	}, 8, time.Millisecond)

	if second.Batch != 2 || second.Binned != 8 || second.Reflected != 2 {
		t.Errorf("second batch = %+v", second)
	}
	if second.Samples != 20 || second.KernelFullBins != 2 {
		t.Errorf("samples %d, full bins %d", second.Samples, second.KernelFullBins)
	}
}

func TestPerfCollector(t *testing.T) {
	pc := NewPerfCollector()
	if s := pc.Stats(); s.Batches != 0 || s.NeutronsPerSec != 0 {
		t.Errorf("empty collector stats = %+v", s)
	}

	for _, ms := range []int{10, 20, 30, 40} {
		pc.Record(time.Duration(ms)*time.Millisecond, 1000)
	}
	s := pc.Stats()
	if s.Batches != 4 || s.Neutrons != 4000 {
		t.Fatalf("stats = %+v", s)
	}
	// three significant figures
	if math.Abs(s.MaxBatchMS-40) > 0.05 {
		t.Errorf("max = %v ms, want 40", s.MaxBatchMS)
	}
	if math.Abs(s.P50BatchMS-20) > 0.05 {
		t.Errorf("p50 = %v ms, want 20", s.P50BatchMS)
	}
	if math.Abs(s.NeutronsPerSec-4000/0.1) > 1e-6 {
		t.Errorf("throughput = %v, want 40000", s.NeutronsPerSec)
	}

	pc.StartBatch()
	if d := pc.EndBatch(10); d < 0 {
		t.Errorf("EndBatch() = %v", d)
	}
	if pc.Stats().Batches != 5 {
		t.Error("EndBatch did not record")
	}
}
