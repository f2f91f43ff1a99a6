package main

import (
	"github.com/spf13/cobra"

	"github.com/pthm-cable/tofsim/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "tofsim",
		Short: "Monte Carlo simulation of time-of-flight neutron reflectometry",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			// Initialize config before anything else
			return config.Init(cfgFile)
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config.yaml (empty = use defaults)")
	rootCmd.AddCommand(initSimulateCmd())
	rootCmd.AddCommand(initSlitsCmd())
	rootCmd.AddCommand(initSpectrumCmd())
	rootCmd.AddCommand(initFitCmd())
}
