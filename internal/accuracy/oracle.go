// Package accuracy checks a backend's numerical answer against known
// analytic integrals.
//
// The serial backend is the reference: if it is correct, the parallel
// backends are compared against the same kernel. A scenario whose reference
// backend is missing is skipped rather than failed, so a partially built
// tree still verifies what it can.
package accuracy

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/extract"
	"github.com/trapbench/trapbench/internal/runner"
)

// DefaultTolerance is the absolute tolerance used when a scenario sets none.
const DefaultTolerance = 1e-6

// Executor runs one invocation repeats times. *runner.Runner implements it.
type Executor interface {
	Run(ctx context.Context, cmd runner.Command, repeats int) (*runner.Measurement, error)
}

// Scenario is one analytic test case.
type Scenario struct {
	Name      string
	A         float64
	B         float64
	N         int64
	Func      backend.Func
	Expected  float64
	Tolerance float64
}

// Params returns the backend parameters of the scenario.
func (s Scenario) Params() backend.Params {
	return backend.Params{A: s.A, B: s.B, N: s.N, Func: s.Func}
}

// DefaultScenarios returns the built-in scenarios.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:      "sin-pi",
			A:         0,
			B:         math.Pi,
			N:         1_000_000,
			Func:      backend.FuncSin,
			Expected:  2.0,
			Tolerance: DefaultTolerance,
		},
		{
			Name:      "x2-unit",
			A:         0,
			B:         1,
			N:         200_000,
			Func:      backend.FuncSquare,
			Expected:  1.0 / 3.0,
			Tolerance: DefaultTolerance,
		},
	}
}

// Status is the verdict of one scenario.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	// StatusSkipped means inconclusive: the reference backend is missing.
	StatusSkipped
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of checking one scenario.
type Outcome struct {
	Scenario Scenario
	Status   Status

	// Actual is the value the backend printed; nil when none was parsed.
	Actual *float64

	// Elapsed is the wall-clock time of the backend run.
	Elapsed time.Duration

	// Err explains a failed or skipped outcome.
	Err error
}

// Report collects the outcomes of a verification run in scenario order.
type Report struct {
	Outcomes []Outcome
}

// Passed returns how many scenarios passed.
func (r Report) Passed() int { return r.count(StatusPassed) }

// Failed returns how many scenarios failed.
func (r Report) Failed() int { return r.count(StatusFailed) }

// Skipped returns how many scenarios were inconclusive.
func (r Report) Skipped() int { return r.count(StatusSkipped) }

// OK reports whether no scenario failed. Skips do not count as failures.
func (r Report) OK() bool { return r.Failed() == 0 }

func (r Report) count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Oracle runs scenarios against the reference backend.
type Oracle struct {
	exec      Executor
	discovery backend.Discovery
	reference backend.Kind
	logger    *slog.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithReference selects the backend whose answers are checked. The default
// is the serial backend.
func WithReference(k backend.Kind) Option {
	return func(o *Oracle) {
		o.reference = k
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Oracle) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOracle creates an oracle over the discovered backends.
func NewOracle(exec Executor, discovery backend.Discovery, opts ...Option) *Oracle {
	o := &Oracle{
		exec:      exec,
		discovery: discovery,
		reference: backend.KindSerial,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Check runs the reference backend once for s and compares its result with
// s.Expected. The comparison is strict: |actual - expected| < tolerance.
func (o *Oracle) Check(ctx context.Context, s Scenario) Outcome {
	out := Outcome{Scenario: s}

	target, ok := o.discovery.Lookup(o.reference)
	if !ok {
		out.Status = StatusSkipped
		out.Err = ErrBackendUnavailable
		o.logger.Warn("reference backend missing, scenario skipped",
			slog.String("scenario", s.Name),
			slog.String("backend", o.reference.String()),
		)
		return out
	}

	inv := backend.Build(target, s.Params(), 1, "")
	m, err := o.exec.Run(ctx, inv.Command, 1)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}
	out.Elapsed = m.Stats.Median

	actual, ok := extract.Result(m.Stdout)
	if !ok {
		out.Status = StatusFailed
		out.Err = ErrUnparseableResult
		return out
	}
	out.Actual = &actual

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if absDiff(actual, s.Expected) < tol {
		out.Status = StatusPassed
	} else {
		out.Status = StatusFailed
		out.Err = &ToleranceError{Actual: actual, Expected: s.Expected, Tolerance: tol}
	}

	o.logger.Debug("scenario checked",
		slog.String("scenario", s.Name),
		slog.String("status", out.Status.String()),
		slog.Float64("actual", actual),
		slog.Float64("expected", s.Expected),
	)
	return out
}

// Verify checks every scenario in order. A failing scenario never stops the
// remaining ones; only a cancelled context does, and the outcomes gathered
// so far are returned.
func (o *Oracle) Verify(ctx context.Context, scenarios []Scenario) Report {
	report := Report{Outcomes: make([]Outcome, 0, len(scenarios))}
	for _, s := range scenarios {
		if ctx.Err() != nil {
			break
		}
		report.Outcomes = append(report.Outcomes, o.Check(ctx, s))
	}
	return report
}

func absDiff(a, b float64) float64 {
	return math.Abs(a - b)
}
