package benchmark

import "github.com/trapbench/trapbench/internal/backend"

// Speedup compares one row against the single-worker baseline.
type Speedup struct {
	Program string `json:"program" yaml:"program"`
	Workers int    `json:"workers" yaml:"workers"`

	// Speedup is baseline median / row median (> 1 means faster).
	Speedup float64 `json:"speedup" yaml:"speedup"`

	// Efficiency is Speedup divided by the worker count.
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`
}

// Baseline returns the row every other row is compared with: the serial
// row, or the single-thread openmp row when serial did not run.
func Baseline(rows []Row) (Row, bool) {
	for _, r := range rows {
		if r.Program == backend.KindSerial.String() {
			return r, true
		}
	}
	for _, r := range rows {
		if r.Program == backend.KindOpenMP.String() && r.Workers == 1 {
			return r, true
		}
	}
	return Row{}, false
}

// Speedups calculates the median-time speedup of every row relative to the
// baseline. It returns nil when there is no usable baseline.
func Speedups(rows []Row) []Speedup {
	base, ok := Baseline(rows)
	if !ok || base.TimeMedian <= 0 {
		return nil
	}

	out := make([]Speedup, 0, len(rows))
	for _, r := range rows {
		s := Speedup{Program: r.Program, Workers: r.Workers}
		if r.TimeMedian > 0 {
			s.Speedup = calculateSpeedup(base.TimeMedian, r.TimeMedian)
			if r.Workers > 0 {
				s.Efficiency = s.Speedup / float64(r.Workers)
			}
		}
		out = append(out, s)
	}
	return out
}

// calculateSpeedup returns how many times faster value is than baseline.
func calculateSpeedup(baseline, value float64) float64 {
	if value == 0 {
		return 0
	}
	return baseline / value
}
