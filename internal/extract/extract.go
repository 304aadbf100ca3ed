// Package extract pulls numeric answers out of free-form program output.
//
// Integration backends print progress and diagnostics before their final
// answer, so every function here scans the output from the last line
// backwards and returns the first value that parses. A line that carries the
// marker but no parseable number is skipped, never treated as an error.
package extract

import (
	"strconv"
	"strings"
	"time"
)

const (
	// ResultMarker precedes the computed integral in backend output.
	ResultMarker = "result="

	// TimeMarker precedes the kernel-reported compute time in seconds.
	TimeMarker = "time="
)

// Result returns the value following the last well-formed "result=" marker
// in output. The boolean is false when no line carries a parseable result.
//
// Example:
//
//	v, ok := Result("iteration 1\nresult=2.0000001\n")
//	// v == 2.0000001, ok == true
func Result(output string) (float64, bool) {
	return Value(output, ResultMarker)
}

// KernelTime returns the compute time a backend reported about itself with
// the "time=" marker. This is the kernel's own measurement, not the
// wall-clock time the runner observed.
func KernelTime(output string) (time.Duration, bool) {
	secs, ok := Value(output, TimeMarker)
	if !ok || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Value scans output in reverse line order for marker and parses the first
// whitespace-delimited token after it as a float64.
//
// Only the first occurrence of marker on a line is considered. Lines where
// the token is missing or malformed are skipped.
func Value(output, marker string) (float64, bool) {
	if marker == "" || output == "" {
		return 0, false
	}

	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if v, ok := parseLine(lines[i], marker); ok {
			return v, true
		}
	}

	return 0, false
}

// parseLine extracts the number after marker on a single line.
func parseLine(line, marker string) (float64, bool) {
	_, rest, found := strings.Cut(line, marker)
	if !found {
		return 0, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
