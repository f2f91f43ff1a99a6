package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/dataset"
	"github.com/pthm-cable/tofsim/fit"
)

const (
	dataFlag     = "data"
	maxEvalsFlag = "max-evals"
)

func initFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit the configured sample parameters to a reflectivity dataset with CMA-ES",
		RunE:  runFit,
	}
	cmd.Flags().String(dataFlag, "", "Dataset CSV with q,r,dr,dq columns")
	cmd.Flags().Int(maxEvalsFlag, 0, "Maximum cost evaluations (0 = use config)")
	cmd.Flags().String(outputDirFlag, "", "Output directory (empty = use config)")
	_ = cmd.MarkFlagRequired(dataFlag)
	return cmd
}

func runFit(cmd *cobra.Command, _ []string) error {
	cfg := config.Cfg()
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}
	if cmd.Flags().Changed(maxEvalsFlag) {
		cfg.Fit.MaxEvals, _ = cmd.Flags().GetInt(maxEvalsFlag)
	}
	logger := slog.Default()

	path, _ := cmd.Flags().GetString(dataFlag)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	ds, err := dataset.ReadCSV(f)
	f.Close()
	if err != nil {
		return err
	}

	params, err := fit.NewParamVector(cfg.Fit.Params, cfg.Sample)
	if err != nil {
		return err
	}
	obj := &fit.Objective{Data: ds, Config: *cfg, Params: params}

	logger.Info("starting fit",
		"points", ds.Len(),
		"params", params.Dim(),
		"max_evals", cfg.Fit.MaxEvals,
	)
	res, err := fit.Minimize(obj, fit.Settings{
		MaxEvals:     cfg.Fit.MaxEvals,
		Population:   cfg.Fit.Population,
		InitStepSize: cfg.Fit.InitStepSize,
		Seed:         cfg.Fit.Seed,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fit finished after %d evaluations (%s)\n", res.Evaluations, res.Status)
	fmt.Fprintf(out, "chi2 %.4f, reduced %.4f\n", res.Chi2, res.Chi2/float64(max(ds.Len()-params.Dim(), 1)))
	for i, spec := range params.Specs {
		fmt.Fprintf(out, "  %s: %.6f\n", spec.Path, res.Values[i])
	}

	best := *cfg
	best.Sample = params.Apply(cfg.Sample, res.Values)
	dir := cfg.Output.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	bestPath := filepath.Join(dir, "fit_config.yaml")
	if err := best.WriteYAML(bestPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Best config saved to: %s\n", bestPath)
	return nil
}
