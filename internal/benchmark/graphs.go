package benchmark

import (
	"fmt"
	"io"
	"strings"
)

const graphWidth = 50

// PrintGraph prints an ASCII bar graph of median time per invocation,
// scaled to the slowest row.
func PrintGraph(w io.Writer, rows []Row) {
	fmt.Fprintf(w, "Median Time per Invocation\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 70))

	if len(rows) == 0 {
		fmt.Fprintf(w, "(no rows)\n")
		return
	}

	// Find max median for scaling
	maxMedian := 0.0
	for _, r := range rows {
		if r.TimeMedian > maxMedian {
			maxMedian = r.TimeMedian
		}
	}

	for _, r := range rows {
		bar := 0
		if maxMedian > 0 {
			bar = int(r.TimeMedian / maxMedian * float64(graphWidth))
		}
		label := fmt.Sprintf("%s x%d", r.Program, r.Workers)
		fmt.Fprintf(w, "%-12s %s %s\n", label, strings.Repeat("█", bar), FormatSeconds(r.TimeMedian))
	}
}

// PrintScaling prints the speedup of every row against the baseline.
func PrintScaling(w io.Writer, rows []Row) {
	speedups := Speedups(rows)
	if len(speedups) == 0 {
		return
	}

	fmt.Fprintf(w, "\nScaling (vs. single worker)\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 70))
	for _, s := range speedups {
		fmt.Fprintf(w, "%-7s %2d workers: speedup %.2fx, efficiency %.0f%%\n",
			s.Program, s.Workers, s.Speedup, s.Efficiency*100)
	}
}
