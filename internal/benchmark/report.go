package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// report is the JSON form of a summary.
type report struct {
	*Summary
	Expected    float64   `json:"expected"`
	DurationSec float64   `json:"duration_sec"`
	Speedups    []Speedup `json:"speedups,omitempty"`
}

func newReport(s *Summary) report {
	return report{
		Summary:     s,
		Expected:    s.Config.Expected(),
		DurationSec: s.Duration().Seconds(),
		Speedups:    Speedups(s.Rows),
	}
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s *Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(newReport(s)); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// WriteYAML writes the summary as YAML.
func WriteYAML(w io.Writer, s *Summary) error {
	// yaml.v3 does not inline embedded pointers, so flatten by hand.
	doc := struct {
		RunID       string     `yaml:"run_id"`
		Config      Config     `yaml:"config"`
		Expected    float64    `yaml:"expected"`
		Rows        []Row      `yaml:"rows"`
		Failures    []Failure  `yaml:"failures,omitempty"`
		Speedups    []Speedup  `yaml:"speedups,omitempty"`
		StartTime   time.Time  `yaml:"start_time"`
		EndTime     time.Time  `yaml:"end_time"`
		DurationSec float64    `yaml:"duration_sec"`
		SystemInfo  SystemInfo `yaml:"system_info"`
	}{
		RunID:       s.RunID,
		Config:      s.Config,
		Expected:    s.Config.Expected(),
		Rows:        s.Rows,
		Failures:    s.Failures,
		Speedups:    Speedups(s.Rows),
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		DurationSec: s.Duration().Seconds(),
		SystemInfo:  s.SystemInfo,
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteMarkdownReport writes a markdown report with tables to path.
func WriteMarkdownReport(s *Summary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	expected := s.Config.Expected()

	fmt.Fprintf(f, "# Trapezoid Benchmark Report\n\n")
	fmt.Fprintf(f, "**Run:** %s\n\n", s.RunID)
	fmt.Fprintf(f, "**Generated:** %s\n\n", s.EndTime.Format(time.RFC3339))

	// System info
	fmt.Fprintf(f, "## System Information\n\n")
	fmt.Fprintf(f, "- **OS:** %s\n", s.SystemInfo.OS)
	fmt.Fprintf(f, "- **Architecture:** %s\n", s.SystemInfo.Arch)
	fmt.Fprintf(f, "- **CPUs:** %d\n", s.SystemInfo.CPUs)
	if s.SystemInfo.GitCommit != "" {
		fmt.Fprintf(f, "- **Git Commit:** %s\n", s.SystemInfo.GitCommit)
	}
	if s.SystemInfo.Hostname != "" {
		fmt.Fprintf(f, "- **Hostname:** %s\n", s.SystemInfo.Hostname)
	}
	fmt.Fprintf(f, "- **Duration:** %v\n\n", s.Duration().Round(time.Millisecond))

	// Configuration
	fmt.Fprintf(f, "## Configuration\n\n")
	fmt.Fprintf(f, "- **Integrand:** %s over [%g, %g]\n", s.Config.Func.Name(), s.Config.A, s.Config.B)
	fmt.Fprintf(f, "- **Subdivisions:** %d\n", s.Config.N)
	fmt.Fprintf(f, "- **Repeats:** %d\n", s.Config.Repeats)
	fmt.Fprintf(f, "- **Analytic value:** %.12g\n\n", expected)

	// Results
	fmt.Fprintf(f, "## Results\n\n")
	fmt.Fprintf(f, "| Program | Workers | Min | Median | Mean | Result | Abs. error |\n")
	fmt.Fprintf(f, "|---------|---------|-----|--------|------|--------|------------|\n")
	for _, r := range s.Rows {
		result, absErr := "n/a", "n/a"
		if r.Result != nil {
			result = fmt.Sprintf("%.12g", *r.Result)
			absErr = fmt.Sprintf("%.3g", math.Abs(*r.Result-expected))
		}
		fmt.Fprintf(f, "| %s | %d | %s | %s | %s | %s | %s |\n",
			r.Program, r.Workers,
			FormatSeconds(r.TimeMin), FormatSeconds(r.TimeMedian), FormatSeconds(r.TimeMean),
			result, absErr)
	}
	fmt.Fprintf(f, "\n")

	if speedups := Speedups(s.Rows); len(speedups) > 0 {
		fmt.Fprintf(f, "## Scaling\n\n")
		fmt.Fprintf(f, "| Program | Workers | Speedup | Efficiency |\n")
		fmt.Fprintf(f, "|---------|---------|---------|------------|\n")
		for _, sp := range speedups {
			fmt.Fprintf(f, "| %s | %d | %.2fx | %.0f%% |\n", sp.Program, sp.Workers, sp.Speedup, sp.Efficiency*100)
		}
		fmt.Fprintf(f, "\n")
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(f, "## Failed Invocations\n\n")
		for _, fl := range s.Failures {
			fmt.Fprintf(f, "- `%s`: %s\n", fl.Command, fl.Error)
		}
		fmt.Fprintf(f, "\n")
	}

	return nil
}
