package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats_Empty(t *testing.T) {
	_, ok := ComputeStats(nil)
	assert.False(t, ok)
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name  string
		input []time.Duration
		want  Stats
	}{
		{
			name:  "single sample",
			input: []time.Duration{5 * time.Millisecond},
			want:  Stats{Min: 5 * time.Millisecond, Median: 5 * time.Millisecond, Mean: 5 * time.Millisecond, Max: 5 * time.Millisecond},
		},
		{
			name:  "odd count unsorted",
			input: []time.Duration{30, 10, 20},
			want:  Stats{Min: 10, Median: 20, Mean: 20, Max: 30},
		},
		{
			name:  "even count averages middle pair",
			input: []time.Duration{40, 10, 30, 20},
			want:  Stats{Min: 10, Median: 25, Mean: 25, Max: 40},
		},
		{
			name:  "median above mean",
			input: []time.Duration{1, 5, 6},
			want:  Stats{Min: 1, Median: 5, Mean: 4, Max: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeStats(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStats_DoesNotMutateInput(t *testing.T) {
	input := []time.Duration{3, 1, 2}
	ComputeStats(input)
	assert.Equal(t, []time.Duration{3, 1, 2}, input)
}
