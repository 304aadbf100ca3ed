package benchmark

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleSummary() *Summary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Summary{
		RunID:  "run-42",
		Config: DefaultConfig(),
		Rows: []Row{
			{Program: "serial", Workers: 1, N: 1000000, TimeMin: 0.8, TimeMedian: 1.0, TimeMean: 1.0, Result: floatPtr(0.4596976941)},
			{Program: "openmp", Workers: 4, N: 1000000, TimeMin: 0.2, TimeMedian: 0.25, TimeMean: 0.3, Result: floatPtr(0.4596976941)},
			{Program: "mpi", Workers: 2, N: 1000000, TimeMin: 0.4, TimeMedian: 0.5, TimeMean: 0.5},
		},
		Failures: []Failure{
			{Program: "mpi", Workers: 4, Command: "mpirun -np 4 bin/mpi 0 1 1000000 0", Error: "invocation failed"},
		},
		StartTime:  start,
		EndTime:    start.Add(3 * time.Second),
		SystemInfo: SystemInfo{OS: "linux", Arch: "amd64", CPUs: 8, GoVersion: "go1.24.0"},
	}
}

func TestSpeedups(t *testing.T) {
	speedups := Speedups(sampleSummary().Rows)
	require.Len(t, speedups, 3)

	assert.InDelta(t, 1.0, speedups[0].Speedup, 1e-9)
	assert.InDelta(t, 4.0, speedups[1].Speedup, 1e-9)
	assert.InDelta(t, 1.0, speedups[1].Efficiency, 1e-9)
	assert.InDelta(t, 2.0, speedups[2].Speedup, 1e-9)
}

func TestSpeedups_OpenMPBaseline(t *testing.T) {
	rows := []Row{
		{Program: "openmp", Workers: 1, TimeMedian: 2.0},
		{Program: "openmp", Workers: 2, TimeMedian: 1.0},
	}
	speedups := Speedups(rows)
	require.Len(t, speedups, 2)
	assert.InDelta(t, 2.0, speedups[1].Speedup, 1e-9)
}

func TestSpeedups_NoBaseline(t *testing.T) {
	assert.Nil(t, Speedups(nil))
	assert.Nil(t, Speedups([]Row{{Program: "mpi", Workers: 2, TimeMedian: 1}}))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleSummary()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "run-42", doc["run_id"])
	assert.InDelta(t, 3.0, doc["duration_sec"], 1e-9)
	assert.InDelta(t, 0.4596976941, doc["expected"], 1e-9)

	rows := doc["rows"].([]any)
	require.Len(t, rows, 3)
	assert.Nil(t, rows[2].(map[string]any)["result"], "absent result encodes as null")
	assert.Len(t, doc["failures"], 1)
	assert.Len(t, doc["speedups"], 3)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleSummary()))

	var doc struct {
		RunID  string `yaml:"run_id"`
		Config Config `yaml:"config"`
		Rows   []Row  `yaml:"rows"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "run-42", doc.RunID)
	assert.Equal(t, DefaultConfig(), doc.Config)
	require.Len(t, doc.Rows, 3)
	assert.Equal(t, "openmp", doc.Rows[1].Program)
	assert.Nil(t, doc.Rows[2].Result)
}

func TestWriteMarkdownReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "bench.md")
	require.NoError(t, WriteMarkdownReport(sampleSummary(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "# Trapezoid Benchmark Report")
	assert.Contains(t, report, "**Run:** run-42")
	assert.Contains(t, report, "| openmp | 4 | 200.00ms | 250.00ms | 300.00ms |")
	assert.Contains(t, report, "| mpi | 2 | 400.00ms | 500.00ms | 500.00ms | n/a | n/a |")
	assert.Contains(t, report, "| openmp | 4 | 4.00x | 100% |")
	assert.Contains(t, report, "## Failed Invocations")
}

func TestPrintGraph(t *testing.T) {
	var buf bytes.Buffer
	PrintGraph(&buf, sampleSummary().Rows)

	out := buf.String()
	assert.Contains(t, out, "serial x1")
	assert.Contains(t, out, "1.00s")
	assert.Contains(t, out, "250.00ms")
}

func TestPrintGraph_NoRows(t *testing.T) {
	var buf bytes.Buffer
	PrintGraph(&buf, nil)
	assert.Contains(t, buf.String(), "(no rows)")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "1.50µs"},
		{2500 * time.Microsecond, "2.50ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}
