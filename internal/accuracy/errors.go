package accuracy

import (
	"errors"
	"fmt"
)

// Errors reported in an Outcome.
//
// These can be checked with errors.Is:
//
//	if errors.Is(outcome.Err, accuracy.ErrToleranceExceeded) {
//	    // numerical regression
//	}
var (
	// ErrBackendUnavailable means the reference backend was not built. The
	// scenario is inconclusive, not failed.
	ErrBackendUnavailable = errors.New("reference backend not available")

	// ErrUnparseableResult means the backend ran but printed no parseable
	// result.
	ErrUnparseableResult = errors.New("no parseable result in output")

	// ErrToleranceExceeded means the result is outside the tolerance.
	ErrToleranceExceeded = errors.New("tolerance exceeded")
)

// ToleranceError carries the numbers of a failed comparison.
type ToleranceError struct {
	Actual    float64
	Expected  float64
	Tolerance float64
}

// Error implements the error interface.
func (e *ToleranceError) Error() string {
	return fmt.Sprintf("%s: got %.12g, want %.12g (|diff| %.3g >= %g)",
		ErrToleranceExceeded, e.Actual, e.Expected, e.Diff(), e.Tolerance)
}

// Unwrap returns ErrToleranceExceeded.
func (e *ToleranceError) Unwrap() error {
	return ErrToleranceExceeded
}

// Diff returns the absolute difference between actual and expected.
func (e *ToleranceError) Diff() float64 {
	return absDiff(e.Actual, e.Expected)
}
