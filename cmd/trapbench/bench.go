package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/benchmark"
	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/history"
	"github.com/trapbench/trapbench/internal/metrics"
	"github.com/trapbench/trapbench/internal/runner"
	"github.com/trapbench/trapbench/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the worker-count sweep over every available backend",
	Long: `Run the benchmark sweep: serial once, openmp with 1, 2, 4 and 8 threads,
then mpi with 1, 2 and 4 ranks. Backends missing from --bin-dir are skipped.
Each invocation is timed --repeats times and one CSV row is written per
successful invocation, as soon as it finishes.

Examples:
  # Default problem (sin over [0,1], n=1e6, 3 repeats)
  trapbench bench

  # Larger problem, 5 repeats, results to a custom file
  trapbench bench --n 100000000 --repeats 5 --output out/big.csv

  # Launch MPI ranks through srun and record the run in the history database
  trapbench bench --launcher srun --record

  # Machine-readable summary
  trapbench bench --format json
`,
	RunE: runBench,
}

func init() {
	d := config.Default()
	benchCmd.Flags().Float64("a", d.A, "Lower integration bound")
	benchCmd.Flags().Float64("b", d.B, "Upper integration bound")
	benchCmd.Flags().Int64("n", d.N, "Number of trapezoid subdivisions")
	benchCmd.Flags().Int("func", d.Func, "Integrand: 0=sin, 1=cos, 2=exp, 3=x^2")
	benchCmd.Flags().Int("repeats", d.Repeats, "Timed executions per invocation")
	benchCmd.Flags().String("bin-dir", d.BinDir, "Directory holding the serial, openmp and mpi executables")
	benchCmd.Flags().String("launcher", d.Launcher, "Process launcher for the mpi backend")
	benchCmd.Flags().Duration("timeout", d.Timeout, "Per-attempt timeout (0 disables)")
	benchCmd.Flags().String("output", d.Output, "CSV results file")
	benchCmd.Flags().String("format", d.Format, "Summary format: text, json or yaml")
	benchCmd.Flags().String("report", d.Report, "Also write a markdown report to this file")
	benchCmd.Flags().String("metrics-file", d.MetricsFile, "Also write Prometheus metrics to this textfile")
	benchCmd.Flags().Bool("cross-check", d.CrossCheck, "Warn when repeats of one invocation disagree on the result")
	benchCmd.Flags().Bool("record", d.Record, "Store the run in the history database")
	benchCmd.Flags().String("db", d.DB, "History database path")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := settings
	log := slog.Default()

	discovery := backend.Discover(cfg.BinDir)
	if discovery.Len() == 0 {
		fmt.Fprintf(os.Stderr, "Warning: no backend executables found in %s\n", cfg.BinDir)
	}

	exec := runner.New(
		runner.WithLogger(log),
		runner.WithTimeout(cfg.Timeout),
		runner.WithKeepOutputs(cfg.CrossCheck),
	)

	// Progress goes to stderr when stdout carries a machine-readable document.
	var progress io.Writer = os.Stdout
	if cfg.Format != "text" {
		progress = os.Stderr
	}

	orch := benchmark.NewOrchestrator(exec, discovery,
		benchmark.WithLauncher(cfg.Launcher),
		benchmark.WithCrossCheck(cfg.CrossCheck),
		benchmark.WithLogger(log),
		benchmark.WithProgress(progress),
	)

	csvOut, err := benchmark.CreateCSV(cfg.Output)
	if err != nil {
		return err
	}
	defer csvOut.Close()

	exporter := metrics.NewExporter()
	sinks := benchmark.MultiSink{csvOut, exporter}

	var recorder *history.Recorder
	if cfg.Record {
		store, err := openHistory(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer store.Close()

		sys := benchmark.GetSystemInfo()
		recorder, err = store.BeginRun(ctx, history.RunInfo{
			ID:        orch.RunID(),
			StartedAt: time.Now(),
			Config:    cfg.Benchmark(),
			Host:      sys.Hostname,
			GitCommit: sys.GitCommit,
		})
		if err != nil {
			return err
		}
		sinks = append(sinks, recorder)
	}

	fmt.Fprintf(progress, "Running benchmark %s (%d invocations)...\n",
		orch.RunID(), len(backend.Plan(discovery, cfg.Benchmark().Params(), cfg.Launcher)))

	summary, runErr := orch.Run(ctx, cfg.Benchmark(), sinks)

	// Whatever was gathered is still flushed and reported on interruption.
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if err := csvOut.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close %s: %w", cfg.Output, err))
	}
	if recorder != nil {
		// The run context may already be cancelled.
		if err := recorder.Finish(context.WithoutCancel(ctx), summary.EndTime); err != nil {
			errs = append(errs, err)
		}
	}

	if err := writeSummary(cmd.OutOrStdout(), cfg, summary); err != nil {
		errs = append(errs, err)
	}

	if cfg.Report != "" {
		if err := benchmark.WriteMarkdownReport(summary, cfg.Report); err != nil {
			errs = append(errs, fmt.Errorf("failed to write report: %w", err))
		} else {
			fmt.Fprintf(progress, "Report written to %s\n", cfg.Report)
		}
	}
	if cfg.MetricsFile != "" {
		if err := exporter.WriteTextfile(cfg.MetricsFile, summary.EndTime); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info("benchmark finished",
		"run_id", summary.RunID,
		"rows", len(summary.Rows),
		"failures", len(summary.Failures),
		"output", cfg.Output,
		"duration", summary.Duration())

	return errors.Join(errs...)
}

func writeSummary(w io.Writer, cfg config.Config, s *benchmark.Summary) error {
	switch cfg.Format {
	case "json":
		return benchmark.WriteJSON(w, s)
	case "yaml":
		return benchmark.WriteYAML(w, s)
	default:
		u := ui.New(w, cfg.NoColor)
		u.Summary(s)
		if len(s.Rows) > 0 {
			fmt.Fprintln(w)
			benchmark.PrintGraph(w, s.Rows)
		}
		fmt.Fprintf(w, "\nResults written to %s\n", cfg.Output)
		return nil
	}
}

func openHistory(ctx context.Context, path string) (*history.Store, error) {
	store, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
