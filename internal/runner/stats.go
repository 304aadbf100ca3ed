package runner

import (
	"sort"
	"time"
)

// Stats aggregates the wall-clock durations of one invocation.
type Stats struct {
	Min    time.Duration
	Median time.Duration
	Mean   time.Duration
	Max    time.Duration
}

// ComputeStats calculates statistics from raw durations.
// The second return value is false when durations is empty: statistics of
// zero samples are undefined, not zero.
func ComputeStats(durations []time.Duration) (Stats, bool) {
	if len(durations) == 0 {
		return Stats{}, false
	}

	// Sort for median calculation
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	// Calculate mean
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	mean := sum / time.Duration(len(sorted))

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Min:    sorted[0],
		Median: median,
		Mean:   mean,
		Max:    sorted[len(sorted)-1],
	}, true
}
