package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/trapbench/trapbench/internal/accuracy"
	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/ui"
	"github.com/trapbench/trapbench/internal/watch"
)

// rebuildWindow is how long the bin directory must stay quiet before a
// rebuilt backend is verified.
const rebuildWindow = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-verify backends whenever they are rebuilt",
	Long: `Watch --bin-dir and run the accuracy scenarios against a backend each time
its executable is created or rewritten. Runs until interrupted.

Examples:
  trapbench watch
  trapbench watch --bin-dir build/bin --scenarios accuracy.toml
`,
	RunE: runWatch,
}

func init() {
	d := config.Default()
	watchCmd.Flags().String("bin-dir", d.BinDir, "Directory holding the backend executables")
	watchCmd.Flags().Duration("timeout", d.Timeout, "Per-attempt timeout (0 disables)")
	watchCmd.Flags().String("scenarios", "", "TOML file of scenarios (default: built-in)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	scenariosPath, _ := cmd.Flags().GetString("scenarios")

	scenarios := accuracy.DefaultScenarios()
	if scenariosPath != "" {
		var err error
		scenarios, err = accuracy.LoadScenarios(scenariosPath)
		if err != nil {
			return err
		}
	}

	w, err := watch.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Start(settings.BinDir); err != nil {
		return err
	}

	u := ui.New(cmd.OutOrStdout(), settings.NoColor)
	u.Printf("Watching %s for backend changes (Ctrl+C to stop)\n", settings.BinDir)

	go func() {
		for err := range w.Errors() {
			slog.Warn("watch error", "error", err)
		}
	}()

	watch.Debounce(ctx, w.Events(), rebuildWindow, func(ev watch.Event) {
		if ev.Op == watch.OpDelete {
			u.Warn("%s removed", ev.Kind)
			return
		}
		u.Printf("\n%s %s, verifying\n", ev.Kind, ev.Op)
		report := verifyOnce(ctx, settings, ev.Kind, scenarios)
		u.Verification(report)
		logReport(ev.Kind, report)
	})

	fmt.Fprintln(cmd.OutOrStdout(), "Stopped watching")
	return nil
}

func logReport(kind backend.Kind, r accuracy.Report) {
	slog.Info("backend verified",
		"backend", kind.String(),
		"passed", r.Passed(),
		"failed", r.Failed(),
		"skipped", r.Skipped())
}
