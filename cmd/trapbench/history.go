package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/trapbench/trapbench/internal/benchmark"
	"github.com/trapbench/trapbench/internal/config"
	"github.com/trapbench/trapbench/internal/history"
	"github.com/trapbench/trapbench/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show benchmark runs stored with --record",
	Long: `List recorded benchmark runs, newest first. With --run or --program the
individual result rows are shown instead.

--since accepts a duration ("72h"), a date ("2026-05-01") or plain English
("last monday", "3 days ago").

Examples:
  trapbench history
  trapbench history --since "last week"
  trapbench history --program openmp --since 2026-05-01
  trapbench history --run 6f1c2a0e-...
`,
	RunE: runHistory,
}

func init() {
	d := config.Default()
	historyCmd.Flags().String("db", d.DB, "History database path")
	historyCmd.Flags().String("since", "", "Only runs started at or after this time")
	historyCmd.Flags().String("program", "", "Show rows of this backend only")
	historyCmd.Flags().String("run", "", "Show rows and failures of this run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sinceText, _ := cmd.Flags().GetString("since")
	program, _ := cmd.Flags().GetString("program")
	runID, _ := cmd.Flags().GetString("run")

	since, err := history.ParseSince(sinceText, time.Now())
	if err != nil {
		return err
	}
	filter := history.Filter{Since: since, Program: program, RunID: runID}

	store, err := openHistory(ctx, settings.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	u := ui.New(cmd.OutOrStdout(), settings.NoColor)

	if program == "" && runID == "" {
		runs, err := store.Runs(ctx, filter)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			u.Warn("no recorded runs")
			return nil
		}
		u.Title(fmt.Sprintf("Runs in %s", store.Path()))
		u.PrintTable(
			[]string{"run", "started", "func", "n", "repeats", "rows", "failed", "commit"},
			runRows(runs),
		)
		return nil
	}

	entries, err := store.Rows(ctx, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		u.Warn("no matching rows")
	} else {
		u.Title("Recorded rows")
		u.PrintTable(
			[]string{"run", "started", "program", "workers", "n", "min", "median", "mean", "result"},
			entryRows(entries),
		)
	}

	if runID != "" {
		failures, err := store.Failures(ctx, runID)
		if err != nil {
			return err
		}
		for _, f := range failures {
			u.Fail("%s workers=%d: %s", f.Program, f.Workers, f.Error)
		}
	}
	return nil
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		commit := r.GitCommit
		if commit == "" {
			commit = "-"
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Config.Func.Name(),
			strconv.FormatInt(r.Config.N, 10),
			strconv.Itoa(r.Config.Repeats),
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Failures),
			commit,
		})
	}
	return rows
}

func entryRows(entries []history.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		result := "-"
		if e.Row.Result != nil {
			result = strconv.FormatFloat(*e.Row.Result, 'g', 12, 64)
		}
		rows = append(rows, []string{
			shortID(e.RunID),
			e.StartedAt.Local().Format(time.DateTime),
			e.Row.Program,
			strconv.Itoa(e.Row.Workers),
			strconv.FormatInt(e.Row.N, 10),
			benchmark.FormatSeconds(e.Row.TimeMin),
			benchmark.FormatSeconds(e.Row.TimeMedian),
			benchmark.FormatSeconds(e.Row.TimeMean),
			result,
		})
	}
	return rows
}

// shortID trims a UUID to its first group for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
