package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/tofsim/simulator"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// Snapshot holds the accumulated histograms of a run together with what is
// needed to reproduce it.
type Snapshot struct {
	Version int    `json:"version"`
	RNGSeed uint64 `json:"rng_seed"`

	Edges     []float64 `json:"edges"`
	Direct    []uint64  `json:"direct"`
	Reflected []uint64  `json:"reflected"`
	Kernel    []int     `json:"kernel_sizes"`
	Samples   uint64    `json:"samples"`

	// q samples behind the resolution kernel, one list per bin
	KernelSamples [][]float32 `json:"kernel_samples"`
}

// NewSnapshot captures the simulator state.
func NewSnapshot(sim *simulator.Simulator, seed uint64) *Snapshot {
	st := sim.State()
	return &Snapshot{
		Version:   SnapshotVersion,
		RNGSeed:   seed,
		Edges:     sim.Edges(),
		Direct:    st.Direct,
		Reflected: st.Reflected,
		Kernel:    st.KernelSizes,
		Samples:   st.Samples,

		KernelSamples: sim.KernelSamples(),
	}
}

// State returns the accumulators recorded in the snapshot.
func (s *Snapshot) State() simulator.State {
	return simulator.State{
		Direct:      s.Direct,
		Reflected:   s.Reflected,
		KernelSizes: s.Kernel,
		Samples:     s.Samples,
	}
}

// SaveSnapshot writes a snapshot to a JSON file.
func SaveSnapshot(s *Snapshot, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot from a JSON file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if len(s.Direct) != len(s.Reflected) || len(s.Edges) != len(s.Direct)+1 {
		return nil, fmt.Errorf("snapshot has %d edges, %d direct and %d reflected bins",
			len(s.Edges), len(s.Direct), len(s.Reflected))
	}
	if len(s.Kernel) != len(s.Direct) || len(s.KernelSamples) != len(s.Direct) {
		return nil, fmt.Errorf("snapshot has %d kernel sizes and %d kernel rows for %d bins",
			len(s.Kernel), len(s.KernelSamples), len(s.Direct))
	}
	for i, row := range s.KernelSamples {
		if len(row) != s.Kernel[i] {
			return nil, fmt.Errorf("snapshot kernel bin %d holds %d samples, size says %d", i, len(row), s.Kernel[i])
		}
	}
	return &s, nil
}
