package backend

import (
	"strconv"

	"github.com/trapbench/trapbench/internal/runner"
)

// DefaultLauncher starts the distributed backend.
const DefaultLauncher = "mpirun"

// Params are the problem parameters every backend receives.
type Params struct {
	A    float64
	B    float64
	N    int64
	Func Func
}

// Args formats the parameters in backend argument order: a, b, n, func.
func (p Params) Args() []string {
	return []string{
		strconv.FormatFloat(p.A, 'g', -1, 64),
		strconv.FormatFloat(p.B, 'g', -1, 64),
		strconv.FormatInt(p.N, 10),
		strconv.Itoa(int(p.Func)),
	}
}

// Invocation is one concrete command for a (target, params, workers) tuple.
type Invocation struct {
	Kind    Kind
	Workers int
	Command runner.Command
}

// Build returns the command line for running target with params and the
// given degree of parallelism. workers is ignored by the serial backend,
// appended as a trailing argument for openmp, and passed to the launcher as
// the rank count for mpi. An empty launcher means DefaultLauncher.
func Build(target Target, params Params, workers int, launcher string) Invocation {
	args := params.Args()

	inv := Invocation{Kind: target.Kind, Workers: workers}
	switch target.Kind {
	case KindSerial:
		inv.Workers = 1
		inv.Command = runner.Command{Path: target.Path, Args: args}
	case KindOpenMP:
		inv.Command = runner.Command{
			Path: target.Path,
			Args: append(args, strconv.Itoa(workers)),
		}
	case KindMPI:
		if launcher == "" {
			launcher = DefaultLauncher
		}
		launchArgs := []string{"-np", strconv.Itoa(workers), target.Path}
		inv.Command = runner.Command{
			Path: launcher,
			Args: append(launchArgs, args...),
		}
	default:
		inv.Command = runner.Command{Path: target.Path, Args: args}
	}

	return inv
}

// Plan returns every invocation of a sweep over the available targets, in
// benchmark order: serial, then openmp by ascending thread count, then mpi
// by ascending rank count.
func Plan(d Discovery, params Params, launcher string) []Invocation {
	var plan []Invocation
	for _, t := range d.Available() {
		for _, w := range t.Kind.Sweep() {
			plan = append(plan, Build(t, params, w, launcher))
		}
	}
	return plan
}
