package runner

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the runner.
//
// These can be checked with errors.Is:
//
//	if errors.Is(err, runner.ErrInvocationFailed) {
//	    // skip this configuration and continue the sweep
//	}
var (
	// ErrInvocationFailed is returned when a backend process could not be
	// started or exited with a non-zero status. All samples collected for
	// the invocation are discarded.
	ErrInvocationFailed = errors.New("invocation failed")

	// ErrTimeout is returned when a single attempt exceeded the configured
	// per-attempt timeout. It is always accompanied by ErrInvocationFailed.
	ErrTimeout = errors.New("attempt timed out")

	// ErrEmptyCommand is returned when a command has no executable.
	ErrEmptyCommand = errors.New("empty command")
)

// maxStderrBytes bounds how much captured stderr is kept in an error.
const maxStderrBytes = 4096

// InvocationError describes a failed attempt of an invocation.
type InvocationError struct {
	// Command is the printable command line.
	Command string

	// Attempt is the 1-based attempt that failed.
	Attempt int

	// ExitCode is the process exit status, or -1 if the process never
	// started or was killed.
	ExitCode int

	// Stderr is the tail of the captured standard error.
	Stderr string

	// Err is the underlying exec error.
	Err error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s: attempt %d of %q", ErrInvocationFailed, e.Attempt, e.Command)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap exposes both ErrInvocationFailed and the underlying cause.
func (e *InvocationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvocationFailed}
	}
	return []error{ErrInvocationFailed, e.Err}
}

// tail trims s and keeps at most the last maxStderrBytes bytes.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxStderrBytes {
		return s
	}
	return "..." + s[len(s)-maxStderrBytes:]
}
