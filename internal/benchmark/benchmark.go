// Package benchmark drives the trapezoid backends through a full sweep and
// turns their timings into result rows.
//
// The orchestrator asks backend discovery which programs exist, builds one
// invocation per (backend, worker count) pair, times each with the process
// runner and extracts the numeric answer from the last attempt's output.
// Rows are handed to a RowSink as soon as they are produced, so a sweep
// interrupted halfway still leaves a valid table behind.
package benchmark

import (
	"fmt"
	"time"

	"github.com/trapbench/trapbench/internal/backend"
)

// Config defines the problem parameters for a benchmark run. It is shared
// by every backend and does not change during a run.
type Config struct {
	// A is the lower integration bound
	A float64 `json:"a" yaml:"a"`

	// B is the upper integration bound (usually, but not necessarily, > A)
	B float64 `json:"b" yaml:"b"`

	// N is the number of trapezoid subdivisions
	N int64 `json:"n" yaml:"n"`

	// Func selects the integrand from the backend catalog
	Func backend.Func `json:"func" yaml:"func"`

	// Repeats is how many timed executions each invocation gets
	Repeats int `json:"repeats" yaml:"repeats"`
}

// DefaultConfig returns a benchmark configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		A:       0.0,
		B:       1.0,
		N:       1_000_000,
		Func:    backend.FuncSin,
		Repeats: 3,
	}
}

// Params returns the backend parameters of the configuration.
func (c Config) Params() backend.Params {
	return backend.Params{A: c.A, B: c.B, N: c.N, Func: c.Func}
}

// Expected returns the analytic value of the configured integral.
func (c Config) Expected() float64 {
	return c.Func.Integral(c.A, c.B)
}

// Row is one successfully run invocation. Times are in seconds.
type Row struct {
	Program    string   `json:"program" yaml:"program"`
	Workers    int      `json:"workers" yaml:"workers"`
	N          int64    `json:"n" yaml:"n"`
	TimeMin    float64  `json:"time_min" yaml:"time_min"`
	TimeMedian float64  `json:"time_median" yaml:"time_median"`
	TimeMean   float64  `json:"time_mean" yaml:"time_mean"`
	Result     *float64 `json:"result" yaml:"result"`

	// KernelTime is the compute time the backend reported itself (last
	// attempt), if it printed one. Not part of the CSV table.
	KernelTime *float64 `json:"kernel_time,omitempty" yaml:"kernel_time,omitempty"`
}

// Failure records an invocation that produced no row.
type Failure struct {
	Program string `json:"program" yaml:"program"`
	Workers int    `json:"workers" yaml:"workers"`
	Command string `json:"command" yaml:"command"`
	Error   string `json:"error" yaml:"error"`
}

// Summary is the outcome of a complete sweep.
type Summary struct {
	RunID      string     `json:"run_id" yaml:"run_id"`
	Config     Config     `json:"config" yaml:"config"`
	Rows       []Row      `json:"rows" yaml:"rows"`
	Failures   []Failure  `json:"failures,omitempty" yaml:"failures,omitempty"`
	StartTime  time.Time  `json:"start_time" yaml:"start_time"`
	EndTime    time.Time  `json:"end_time" yaml:"end_time"`
	SystemInfo SystemInfo `json:"system_info" yaml:"system_info"`
}

// Duration returns how long the sweep took.
func (s *Summary) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// FormatDuration formats a duration into a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// FormatSeconds formats a duration given in seconds.
func FormatSeconds(secs float64) string {
	return FormatDuration(time.Duration(secs * float64(time.Second)))
}
