package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/tofsim/config"
)

const outFlag = "out"

func initSpectrumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "Write the beam spectrum the simulation would use as CSV",
		RunE:  writeSpectrum,
	}
	cmd.Flags().String(outFlag, "spectrum.csv", "Output CSV path")
	return cmd
}

func writeSpectrum(cmd *cobra.Command, _ []string) error {
	cfg := config.Cfg()
	t, err := cfg.SpectrumTable()
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString(outFlag)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	lo, hi := t.Support()
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows over [%g, %g] Å to %s\n", t.Len(), lo, hi, path)
	return nil
}
