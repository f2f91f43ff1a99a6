package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/dataset"
	"github.com/pthm-cable/tofsim/telemetry"
)

const (
	samplesFlag   = "samples"
	batchesFlag   = "batches"
	seedFlag      = "seed"
	outputDirFlag = "output-dir"
	angleFlag     = "angle"
)

func initSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a reflectivity measurement and write dataset, kernel and run statistics",
		RunE:  simulate,
	}
	cmd.Flags().Int(samplesFlag, 0, "Neutrons to sample (0 = use config)")
	cmd.Flags().Int(batchesFlag, 0, "Batches the neutrons are split over (0 = use config)")
	cmd.Flags().Uint64(seedFlag, 0, "RNG seed (0 = use config, then time-based)")
	cmd.Flags().String(outputDirFlag, "", "Output directory (empty = use config)")
	cmd.Flags().Float64(angleFlag, 0, "Angle of incidence in degrees (0 = use config)")
	return cmd
}

// applyOverrides copies flags the user set onto the config. Flags a
// command does not define are never reported as changed.
func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed(samplesFlag) {
		cfg.Simulation.Samples, _ = flags.GetInt(samplesFlag)
	}
	if flags.Changed(batchesFlag) {
		cfg.Simulation.Batches, _ = flags.GetInt(batchesFlag)
	}
	if flags.Changed(seedFlag) {
		cfg.Simulation.Seed, _ = flags.GetUint64(seedFlag)
	}
	if flags.Changed(outputDirFlag) {
		cfg.Output.Dir, _ = flags.GetString(outputDirFlag)
	}
	if flags.Changed(angleFlag) {
		cfg.Instrument.Angle, _ = flags.GetFloat64(angleFlag)
	}
	return cfg.Recompute()
}

func simulate(cmd *cobra.Command, _ []string) error {
	cfg := config.Cfg()
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}
	logger := slog.Default()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	// recorded so the config snapshot reproduces the run
	cfg.Simulation.Seed = seed
	rng := rand.New(rand.NewPCG(seed, seed))

	sim, err := cfg.NewSimulator(logger)
	if err != nil {
		return err
	}
	s1, s2 := sim.Slits()
	logger.Info("starting simulation",
		"seed", seed,
		"samples", cfg.Simulation.Samples,
		"batches", cfg.Simulation.Batches,
		"angle", cfg.Instrument.Angle,
		"s1", s1,
		"s2", s2,
		"bins", len(sim.Q()),
	)

	om, err := telemetry.NewOutputManager(cfg.Output)
	if err != nil {
		return err
	}
	defer om.Close()

	collector := telemetry.NewCollector(cfg.Simulation.KernelCap)
	perf := telemetry.NewPerfCollector()
	for _, n := range cfg.Derived.BatchSizes {
		perf.StartBatch()
		sim.Run(n, rng)
		elapsed := perf.EndBatch(n)

		stats := collector.Observe(sim.State(), n, elapsed)
		stats.LogStats(logger)
		if err := om.WriteBatch(stats); err != nil {
			return err
		}
	}
	perfStats := perf.Stats()
	perfStats.LogStats(logger)

	if err := om.WriteSnapshot(telemetry.NewSnapshot(sim, seed)); err != nil {
		return err
	}
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}
	if err := om.WritePerf(perfStats); err != nil {
		return err
	}

	ds, err := sim.Reflectivity(rng)
	if errors.Is(err, dataset.ErrZeroDivisor) {
		return fmt.Errorf("%w; sample more neutrons or narrow the wavelength range", err)
	}
	if err != nil {
		return err
	}
	if err := om.WriteDataset(ds); err != nil {
		return err
	}
	if err := om.WriteKernel(sim.ResolutionKernel(cfg.Simulation.KernelBins)); err != nil {
		return err
	}

	logger.Info("simulation complete", "dir", om.Dir(), "points", ds.Len())
	return om.Close()
}
