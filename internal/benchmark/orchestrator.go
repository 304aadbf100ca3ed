package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/extract"
	"github.com/trapbench/trapbench/internal/runner"
)

// Executor runs one invocation repeats times. *runner.Runner implements it.
type Executor interface {
	Run(ctx context.Context, cmd runner.Command, repeats int) (*runner.Measurement, error)
}

// Orchestrator runs the benchmark sweep over every available backend.
//
// Invocations run strictly one at a time; the orchestrator is meant to be
// used from a single goroutine.
type Orchestrator struct {
	exec       Executor
	discovery  backend.Discovery
	launcher   string
	runID      string
	crossCheck bool
	logger     *slog.Logger
	progress   io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLauncher sets the process launcher for the distributed backend.
func WithLauncher(launcher string) Option {
	return func(o *Orchestrator) {
		if launcher != "" {
			o.launcher = launcher
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.runID = id
		}
	}
}

// WithCrossCheck compares the result of every repeat, not just the last,
// and logs a warning when they disagree. The executor must keep outputs
// (runner.WithKeepOutputs) for this to have any effect.
func WithCrossCheck(enabled bool) Option {
	return func(o *Orchestrator) {
		o.crossCheck = enabled
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProgress prints one progress line per invocation to w.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.progress = w
		}
	}
}

// NewOrchestrator creates an orchestrator over the discovered backends.
func NewOrchestrator(exec Executor, discovery backend.Discovery, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		exec:      exec,
		discovery: discovery,
		launcher:  backend.DefaultLauncher,
		runID:     uuid.NewString(),
		logger:    slog.Default(),
		progress:  io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunID returns the identifier of the run this orchestrator produces.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run executes the sweep: serial, then openmp by ascending thread count,
// then mpi by ascending rank count. Unavailable backends are skipped and a
// failed invocation only costs its own row. Every row is written to sink as
// soon as it is produced.
//
// Run returns an error only when the context is cancelled or the sink
// fails; the summary gathered so far is returned in both cases.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, sink RowSink) (*Summary, error) {
	summary := &Summary{
		RunID:      o.runID,
		Config:     cfg,
		Rows:       make([]Row, 0),
		StartTime:  time.Now(),
		SystemInfo: GetSystemInfo(),
	}
	defer func() {
		summary.EndTime = time.Now()
	}()

	params := cfg.Params()

	o.logger.Info("starting benchmark sweep",
		slog.String("run_id", o.runID),
		slog.Int("backends", o.discovery.Len()),
		slog.Int64("n", cfg.N),
		slog.Int("repeats", cfg.Repeats),
	)

	for _, kind := range backend.Kinds {
		if _, ok := o.discovery.Lookup(kind); !ok {
			o.logger.Debug("backend not available, skipping",
				slog.String("program", kind.String()),
			)
		}
	}

	for _, inv := range backend.Plan(o.discovery, params, o.launcher) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		row, err := o.runInvocation(ctx, inv, cfg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}

			failure := Failure{
				Program: inv.Kind.String(),
				Workers: inv.Workers,
				Command: inv.Command.String(),
				Error:   err.Error(),
			}
			summary.Failures = append(summary.Failures, failure)
			if fr, ok := sink.(FailureRecorder); ok {
				fr.RecordFailure(failure)
			}
			fmt.Fprintf(o.progress, "  %-7s workers=%-2d FAILED\n", inv.Kind, inv.Workers)
			continue
		}

		if err := sink.WriteRow(row); err != nil {
			return summary, fmt.Errorf("failed to write row: %w", err)
		}
		summary.Rows = append(summary.Rows, row)

		fmt.Fprintf(o.progress, "  %-7s workers=%-2d median=%s\n",
			inv.Kind, inv.Workers, FormatSeconds(row.TimeMedian))
	}

	o.logger.Info("benchmark sweep complete",
		slog.String("run_id", o.runID),
		slog.Int("rows", len(summary.Rows)),
		slog.Int("failures", len(summary.Failures)),
	)

	return summary, nil
}

// runInvocation times one invocation and builds its row.
func (o *Orchestrator) runInvocation(ctx context.Context, inv backend.Invocation, cfg Config) (Row, error) {
	m, err := o.exec.Run(ctx, inv.Command, cfg.Repeats)
	if err != nil {
		if !errors.Is(err, runner.ErrInvocationFailed) {
			o.logger.Warn("invocation error",
				slog.String("command", inv.Command.String()),
				slog.String("error", err.Error()),
			)
		}
		return Row{}, err
	}

	row := Row{
		Program:    inv.Kind.String(),
		Workers:    inv.Workers,
		N:          cfg.N,
		TimeMin:    m.Stats.Min.Seconds(),
		TimeMedian: m.Stats.Median.Seconds(),
		TimeMean:   m.Stats.Mean.Seconds(),
	}

	if v, ok := extract.Result(m.Stdout); ok {
		row.Result = &v
	} else {
		o.logger.Warn("no parseable result in backend output",
			slog.String("program", row.Program),
			slog.Int("workers", row.Workers),
		)
	}
	if d, ok := extract.KernelTime(m.Stdout); ok {
		secs := d.Seconds()
		row.KernelTime = &secs
	}

	if o.crossCheck {
		o.checkRepeats(inv, m)
	}

	return row, nil
}

// checkRepeats warns when repeats of one invocation report different
// results, e.g. from a non-deterministic parallel reduction order.
func (o *Orchestrator) checkRepeats(inv backend.Invocation, m *runner.Measurement) {
	if len(m.Outputs) < 2 {
		return
	}

	var first float64
	var seen bool
	for i, out := range m.Outputs {
		v, ok := extract.Result(out)
		if !ok {
			continue
		}
		if !seen {
			first, seen = v, true
			continue
		}
		if v != first {
			o.logger.Warn("repeats disagree on result",
				slog.String("program", inv.Kind.String()),
				slog.Int("workers", inv.Workers),
				slog.Int("attempt", i+1),
				slog.Float64("first", first),
				slog.Float64("value", v),
			)
			return
		}
	}
}
