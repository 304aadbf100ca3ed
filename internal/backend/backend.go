// Package backend describes the interchangeable integration programs the
// harness benchmarks, finds them on disk, and builds their command lines.
//
// The set of backends is closed and small:
//
//	serial  <exe> <a> <b> <n> <func>
//	openmp  <exe> <a> <b> <n> <func> <threads>
//	mpi     <launcher> -np <ranks> <exe> <a> <b> <n> <func>
//
// Command lines are built by switching on Kind rather than through an
// interface hierarchy.
package backend

import (
	"errors"
	"fmt"
)

// Kind identifies one execution strategy.
type Kind int

const (
	// KindSerial is the single-threaded backend.
	KindSerial Kind = iota
	// KindOpenMP is the shared-memory parallel backend.
	KindOpenMP
	// KindMPI is the distributed-process backend, started through a launcher.
	KindMPI
)

// Kinds lists every backend in benchmark order.
var Kinds = []Kind{KindSerial, KindOpenMP, KindMPI}

// ErrUnavailable is returned when a backend's executable was not found.
// Consumers treat it as "skip", never as a failure of the run.
var ErrUnavailable = errors.New("backend not available")

// ErrUnknownKind is returned when parsing an unknown backend name.
var ErrUnknownKind = errors.New("unknown backend")

// String returns the backend name used for artifacts and output rows.
func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindOpenMP:
		return "openmp"
	case KindMPI:
		return "mpi"
	default:
		return "unknown"
	}
}

// ParseKind converts a backend name into a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Sweep returns the worker (or rank) counts a backend is benchmarked with,
// in ascending order. The policy is fixed.
func (k Kind) Sweep() []int {
	switch k {
	case KindSerial:
		return []int{1}
	case KindOpenMP:
		return []int{1, 2, 4, 8}
	case KindMPI:
		return []int{2, 4}
	default:
		return nil
	}
}

// UsesLauncher reports whether the backend is started through a
// process-group launcher instead of directly.
func (k Kind) UsesLauncher() bool {
	return k == KindMPI
}
