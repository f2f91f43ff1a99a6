package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/geometry"
)

func initSlitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slits",
		Short: "Print the slit openings and angular divergence for the configured collimation",
		RunE:  slits,
	}
	cmd.Flags().Float64(angleFlag, 0, "Angle of incidence in degrees (0 = use config)")
	return cmd
}

func slits(cmd *cobra.Command, _ []string) error {
	cfg := config.Cfg()
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}
	in := cfg.Instrument
	c := geometry.Collimation{L12: in.L12, L2S: in.L2S, Footprint: in.Footprint}

	s1, s2, err := geometry.OptimiseSlits(c, in.DTheta/100, in.Angle)
	if err != nil {
		return err
	}
	dtheta, alpha, beta := geometry.Divergence(s1, s2, in.L12)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "angle     %g deg\n", in.Angle)
	fmt.Fprintf(out, "s1        %.4f mm\n", s1)
	fmt.Fprintf(out, "s2        %.4f mm\n", s2)
	fmt.Fprintf(out, "dtheta    %.5f deg (%.2f %%)\n", dtheta, 100*dtheta/in.Angle)
	fmt.Fprintf(out, "alpha     %.5f deg\n", alpha)
	fmt.Fprintf(out, "beta      %.5f deg\n", beta)
	return nil
}
