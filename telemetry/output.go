// Package telemetry writes the products of a simulation run: the simulated
// dataset, its resolution kernel, per-batch statistics, batch timing and a
// configuration snapshot.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/dataset"
	"github.com/pthm-cable/tofsim/simulator"
)

// Names of the files written next to the configured outputs.
const (
	PerfFile     = "perf.csv"
	SnapshotFile = "state.json"
)

// KernelPoint is one non-missing element of a resolution kernel.
type KernelPoint struct {
	Point   int     `csv:"point"` // dataset row, lowest q first
	Bin     int     `csv:"bin"`
	Q       float64 `csv:"q"`
	Density float64 `csv:"density"`
}

// KernelPoints flattens a kernel to long form, skipping missing elements.
func KernelPoints(k simulator.Kernel) []KernelPoint {
	var pts []KernelPoint
	for i := range k.Rows {
		for j := 0; j < k.Width; j++ {
			q, d, ok := k.At(i, j)
			if !ok {
				continue
			}
			pts = append(pts, KernelPoint{Point: i, Bin: j, Q: q, Density: d})
		}
	}
	return pts
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir   string
	names config.OutputConfig

	batchFile *os.File

	// Track if headers have been written
	batchHeaderWritten bool
}

// NewOutputManager creates the output directory and opens the batch log.
// An empty names.Dir means the working directory.
func NewOutputManager(names config.OutputConfig) (*OutputManager, error) {
	dir := names.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, names: names}

	f, err := os.Create(filepath.Join(dir, names.Batches))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", names.Batches, err)
	}
	om.batchFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, om.names.Config))
}

// WriteBatch appends a batch stats record to the batch log.
func (om *OutputManager) WriteBatch(stats BatchStats) error {
	if om == nil {
		return nil
	}

	records := []BatchStats{stats}

	if !om.batchHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.batchFile); err != nil {
			return fmt.Errorf("writing batch stats: %w", err)
		}
		om.batchHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.batchFile); err != nil {
			return fmt.Errorf("writing batch stats: %w", err)
		}
	}

	return nil
}

// WriteDataset writes the simulated reflectivity.
func (om *OutputManager) WriteDataset(ds *dataset.ReflectDataset) error {
	if om == nil {
		return nil
	}
	return writeFile(filepath.Join(om.dir, om.names.Dataset), ds.WriteCSV)
}

// WriteKernel writes the resolution kernel in long form.
func (om *OutputManager) WriteKernel(k simulator.Kernel) error {
	if om == nil {
		return nil
	}
	pts := KernelPoints(k)
	return writeFile(filepath.Join(om.dir, om.names.Kernel), func(w io.Writer) error {
		if err := gocsv.Marshal(pts, w); err != nil {
			return fmt.Errorf("writing kernel: %w", err)
		}
		return nil
	})
}

// WritePerf writes the batch timing summary.
func (om *OutputManager) WritePerf(stats PerfStats) error {
	if om == nil {
		return nil
	}
	return writeFile(filepath.Join(om.dir, PerfFile), func(w io.Writer) error {
		if err := gocsv.Marshal([]PerfStats{stats}, w); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		return nil
	})
}

// WriteSnapshot saves the accumulated state as JSON.
func (om *OutputManager) WriteSnapshot(s *Snapshot) error {
	if om == nil {
		return nil
	}
	return SaveSnapshot(s, filepath.Join(om.dir, SnapshotFile))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil || om.batchFile == nil {
		return nil
	}
	return om.batchFile.Close()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
