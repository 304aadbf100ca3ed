package ui

import (
	"fmt"
	"math"
	"strconv"

	"github.com/trapbench/trapbench/internal/accuracy"
	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/benchmark"
)

// ResultHeaders are the columns of the text result table.
var ResultHeaders = []string{"program", "workers", "min", "median", "mean", "kernel", "result", "abs error"}

// ResultRows formats benchmark rows for Table. expected is the analytic
// value used for the error column.
func ResultRows(rows []benchmark.Row, expected float64) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		kernel, result, absErr := "-", "-", "-"
		if r.KernelTime != nil {
			kernel = benchmark.FormatSeconds(*r.KernelTime)
		}
		if r.Result != nil {
			result = strconv.FormatFloat(*r.Result, 'g', 12, 64)
			absErr = strconv.FormatFloat(math.Abs(*r.Result-expected), 'e', 2, 64)
		}
		out = append(out, []string{
			r.Program,
			strconv.Itoa(r.Workers),
			benchmark.FormatSeconds(r.TimeMin),
			benchmark.FormatSeconds(r.TimeMedian),
			benchmark.FormatSeconds(r.TimeMean),
			kernel,
			result,
			absErr,
		})
	}
	return out
}

// Summary prints the outcome of a benchmark sweep.
func (u *UI) Summary(s *benchmark.Summary) {
	expected := s.Config.Expected()

	fmt.Fprintln(u.w)
	u.Title("Benchmark Results")
	u.Printf("%s over [%g, %g], n=%d, repeats=%d, analytic=%.12g\n",
		s.Config.Func.Name(), s.Config.A, s.Config.B, s.Config.N, s.Config.Repeats, expected)

	if len(s.Rows) == 0 {
		u.Warn("no rows produced (no backend available or every invocation failed)")
	} else {
		u.PrintTable(ResultHeaders, ResultRows(s.Rows, expected))
	}

	if speedups := benchmark.Speedups(s.Rows); len(speedups) > 0 {
		rows := make([][]string, 0, len(speedups))
		for _, sp := range speedups {
			rows = append(rows, []string{
				sp.Program,
				strconv.Itoa(sp.Workers),
				fmt.Sprintf("%.2fx", sp.Speedup),
				fmt.Sprintf("%.0f%%", sp.Efficiency*100),
			})
		}
		fmt.Fprintln(u.w)
		u.Title("Scaling")
		u.PrintTable([]string{"program", "workers", "speedup", "efficiency"}, rows)
	}

	for _, f := range s.Failures {
		u.Fail("%s workers=%d: %s", f.Program, f.Workers, f.Error)
	}

	u.Printf("\n%s %d rows, %d failed invocations in %s\n",
		u.Styles.Muted.Render("run "+s.RunID+":"),
		len(s.Rows), len(s.Failures), benchmark.FormatDuration(s.Duration()))
}

// Verification prints an accuracy report, one line per scenario.
func (u *UI) Verification(r accuracy.Report) {
	u.Title("Accuracy")
	for _, o := range r.Outcomes {
		switch o.Status {
		case accuracy.StatusPassed:
			u.Success("%s: %.12g (expected %.12g, tol %g)",
				o.Scenario.Name, *o.Actual, o.Scenario.Expected, o.Scenario.Tolerance)
		case accuracy.StatusSkipped:
			u.Warn("%s: skipped: %v", o.Scenario.Name, o.Err)
		default:
			u.Fail("%s: %v", o.Scenario.Name, o.Err)
		}
	}
	u.Printf("%d passed, %d failed, %d skipped\n", r.Passed(), r.Failed(), r.Skipped())
}

// Discovery prints which backends were found and the sweep they imply.
func (u *UI) Discovery(d backend.Discovery, plan []backend.Invocation) {
	u.Title(fmt.Sprintf("Backends in %s", d.Dir()))

	rows := make([][]string, 0, len(backend.Kinds))
	for _, k := range backend.Kinds {
		status, path := "not found", "-"
		if t, ok := d.Lookup(k); ok {
			status, path = "available", t.Path
		}
		rows = append(rows, []string{k.String(), status, path, fmt.Sprint(k.Sweep())})
	}
	u.PrintTable([]string{"backend", "status", "path", "sweep"}, rows)

	if len(plan) == 0 {
		u.Warn("nothing to run")
		return
	}
	fmt.Fprintln(u.w)
	u.Title("Sweep plan")
	for i, inv := range plan {
		u.Printf("%2d. %s\n", i+1, inv.Command)
	}
}
