package accuracy

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/trapbench/trapbench/internal/backend"
)

// scenarioFile is the on-disk layout:
//
//	[[scenario]]
//	name = "cos-half-pi"
//	a = 0.0
//	b = 1.5707963267948966
//	n = 100000
//	func = 1
//	expected = 1.0   # optional, defaults to the analytic integral
//	tolerance = 1e-8 # optional, defaults to 1e-6
type scenarioFile struct {
	Scenario []scenarioEntry `toml:"scenario"`
}

type scenarioEntry struct {
	Name      string   `toml:"name"`
	A         float64  `toml:"a"`
	B         float64  `toml:"b"`
	N         int64    `toml:"n"`
	Func      int      `toml:"func"`
	Expected  *float64 `toml:"expected"`
	Tolerance *float64 `toml:"tolerance"`
}

// ErrInvalidScenario is returned for a scenario file entry that cannot run.
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadScenarios reads scenarios from a TOML file.
func LoadScenarios(path string) ([]Scenario, error) {
	var f scenarioFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidScenario, undecoded[0].String(), path)
	}
	if len(f.Scenario) == 0 {
		return nil, fmt.Errorf("%w: %s defines no [[scenario]] tables", ErrInvalidScenario, path)
	}

	scenarios := make([]Scenario, 0, len(f.Scenario))
	for i, e := range f.Scenario {
		s, err := e.toScenario(i)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func (e scenarioEntry) toScenario(index int) (Scenario, error) {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("scenario-%d", index+1)
	}
	if e.N <= 0 {
		return Scenario{}, fmt.Errorf("%w: %s: n must be positive", ErrInvalidScenario, name)
	}

	s := Scenario{
		Name:      name,
		A:         e.A,
		B:         e.B,
		N:         e.N,
		Func:      backend.Func(e.Func),
		Tolerance: DefaultTolerance,
	}
	if e.Tolerance != nil {
		if *e.Tolerance <= 0 {
			return Scenario{}, fmt.Errorf("%w: %s: tolerance must be positive", ErrInvalidScenario, name)
		}
		s.Tolerance = *e.Tolerance
	}
	if e.Expected != nil {
		s.Expected = *e.Expected
	} else {
		s.Expected = s.Func.Integral(s.A, s.B)
	}
	return s, nil
}
