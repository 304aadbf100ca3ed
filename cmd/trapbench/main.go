// Command trapbench benchmarks and validates trapezoid integration backends.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/logging"
)

var (
	configPath string

	// settings is loaded once per invocation by PersistentPreRunE.
	settings config.Config
	logger   *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trapbench",
	Short: "Benchmark and verify trapezoid integration backends",
	Long: `trapbench drives the serial, OpenMP and MPI builds of the trapezoid
integrator through a worker-count sweep, records timings to CSV and checks
the numeric answers against known integrals.

Settings come from flags, TRAPBENCH_* environment variables and an optional
trapbench.{yaml,toml,json} in the working directory, in that precedence.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			return nil
		}
		return logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./trapbench.{yaml,toml,json})")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}

// setup merges flags, environment and config file, then installs the logger.
func setup(cmd *cobra.Command, args []string) error {
	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	settings = cfg

	logger, err = logging.New(logging.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger.Logger)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
