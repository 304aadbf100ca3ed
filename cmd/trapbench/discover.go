package main

import (
	"github.com/spf13/cobra"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/ui"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Show which backends are available and the sweep they imply",
	Long: `List the serial, openmp and mpi executables found in --bin-dir and print
every command line a benchmark run would execute, in order. Nothing is run.`,
	RunE: runDiscover,
}

func init() {
	d := config.Default()
	discoverCmd.Flags().String("bin-dir", d.BinDir, "Directory holding the backend executables")
	discoverCmd.Flags().String("launcher", d.Launcher, "Process launcher for the mpi backend")
	discoverCmd.Flags().Float64("a", d.A, "Lower integration bound")
	discoverCmd.Flags().Float64("b", d.B, "Upper integration bound")
	discoverCmd.Flags().Int64("n", d.N, "Number of trapezoid subdivisions")
	discoverCmd.Flags().Int("func", d.Func, "Integrand: 0=sin, 1=cos, 2=exp, 3=x^2")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	d := backend.Discover(settings.BinDir)
	plan := backend.Plan(d, settings.Benchmark().Params(), settings.Launcher)
	ui.New(cmd.OutOrStdout(), settings.NoColor).Discovery(d, plan)
	return nil
}
