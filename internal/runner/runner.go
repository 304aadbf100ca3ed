// Package runner executes backend programs and measures their wall-clock time.
//
// A Runner executes one command a fixed number of times, strictly one after
// another, so that concurrent benchmark processes never compete for the
// host's cores and memory bandwidth. The first failing attempt fails the
// whole invocation: partial samples are discarded and an *InvocationError is
// returned. The caller decides whether that aborts anything; the orchestrator
// only skips the configuration.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// was killed (grandchildren of a launcher may still hold them open).
const waitDelay = 2 * time.Second

// Command is an executable plus its ordered arguments.
type Command struct {
	// Path is the executable, either a resolved path or a name looked up
	// in PATH (e.g. a process launcher).
	Path string

	// Args are passed to the program in order.
	Args []string
}

// Argv returns the full argument vector including the executable.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Path)
	return append(argv, c.Args...)
}

// String returns the command line joined with spaces.
func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Measurement is the outcome of a successful invocation.
type Measurement struct {
	// Samples holds one wall-clock duration per attempt, in run order.
	Samples []time.Duration

	// Stats aggregates Samples.
	Stats Stats

	// Stdout is the standard output of the last attempt. Earlier attempts
	// only contribute timing.
	Stdout string

	// Outputs holds the standard output of every attempt in run order.
	// Populated only when the runner was built WithKeepOutputs(true).
	Outputs []string
}

// Runner executes commands sequentially and times them.
//
// Thread Safety: a Runner holds no per-run state and may be shared, but the
// harness deliberately calls it from a single goroutine.
type Runner struct {
	logger      *slog.Logger
	timeout     time.Duration
	workDir     string
	env         []string
	keepOutputs bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for attempt and failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout sets a per-attempt timeout. Zero or negative disables it,
// which is the default: a hung backend then blocks until it is killed.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithWorkDir sets the working directory of spawned processes.
func WithWorkDir(dir string) Option {
	return func(r *Runner) {
		r.workDir = dir
	}
}

// WithEnv sets the environment of spawned processes ("KEY=value" entries).
// An empty slice keeps the harness's own environment.
func WithEnv(env []string) Option {
	return func(r *Runner) {
		r.env = env
	}
}

// WithKeepOutputs keeps the stdout of every attempt in Measurement.Outputs
// so callers can cross-check repeats against each other.
func WithKeepOutputs(keep bool) Option {
	return func(r *Runner) {
		r.keepOutputs = keep
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd repeats times (at least once) and returns the timing
// statistics and the last attempt's stdout.
//
// If any attempt fails to start, exits non-zero or times out, Run stops
// immediately and returns an *InvocationError; no Measurement is returned.
// If ctx is cancelled, Run kills the in-flight process and returns an error
// wrapping ctx.Err().
func (r *Runner) Run(ctx context.Context, cmd Command, repeats int) (*Measurement, error) {
	if cmd.Path == "" {
		return nil, ErrEmptyCommand
	}
	if repeats < 1 {
		repeats = 1
	}

	line := cmd.String()
	samples := make([]time.Duration, 0, repeats)
	var outputs []string
	var lastStdout string

	for i := 1; i <= repeats; i++ {
		elapsed, stdout, err := r.attempt(ctx, cmd, i)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("run %q cancelled: %w", line, ctxErr)
			}

			var invErr *InvocationError
			if errors.As(err, &invErr) {
				r.logger.Warn("invocation failed",
					slog.String("command", line),
					slog.Int("attempt", invErr.Attempt),
					slog.Int("exit_code", invErr.ExitCode),
					slog.String("stderr", invErr.Stderr),
				)
			}
			return nil, err
		}

		samples = append(samples, elapsed)
		lastStdout = stdout
		if r.keepOutputs {
			outputs = append(outputs, stdout)
		}

		r.logger.Debug("attempt completed",
			slog.String("command", line),
			slog.Int("attempt", i),
			slog.Duration("elapsed", elapsed),
			slog.Int("stdout_bytes", len(stdout)),
		)
	}

	stats, _ := ComputeStats(samples)
	return &Measurement{
		Samples: samples,
		Stats:   stats,
		Stdout:  lastStdout,
		Outputs: outputs,
	}, nil
}

// attempt runs the command once and measures its wall-clock duration.
func (r *Runner) attempt(ctx context.Context, cmd Command, n int) (time.Duration, string, error) {
	// Apply per-attempt timeout
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	c := exec.CommandContext(runCtx, cmd.Path, cmd.Args...)
	c.Dir = r.workDir
	if len(r.env) > 0 {
		c.Env = r.env
	}
	c.WaitDelay = waitDelay
	configureProcess(c)

	// Capture output
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// time.Now carries a monotonic reading, so Since is immune to wall
	// clock adjustments.
	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start)

	if err == nil {
		return elapsed, stdout.String(), nil
	}

	invErr := &InvocationError{
		Command:  cmd.String(),
		Attempt:  n,
		ExitCode: -1,
		Stderr:   tail(stderr.String()),
		Err:      err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		invErr.ExitCode = exitErr.ExitCode()
	}
	if r.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		invErr.Err = fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		invErr.ExitCode = -1
	}

	return elapsed, "", invErr
}
