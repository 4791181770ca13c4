// Package commands implements the radiosim CLI's cobra subcommands.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the --config flag shared by every subcommand.
var configPath string

// rootCmd is the top-level cobra command for radiosim.
var rootCmd = &cobra.Command{
	Use:   "radiosim",
	Short: "Discrete-event simulator for radio-resource allocation across network slices",
	Long: "radiosim runs a TTI-stepped simulation of inter-slice and intra-slice\n" +
		"RBG scheduling over eMBB/URLLC/BE network slices, from a declarative\n" +
		"YAML scenario.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to scenario configuration file (YAML); empty uses a built-in demo scenario")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateConfigCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
