package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
		wantOK bool
	}{
		{
			name:   "empty output",
			output: "",
			wantOK: false,
		},
		{
			name:   "no marker",
			output: "Serial Trapezoid: func=0\nall done\n",
			wantOK: false,
		},
		{
			name:   "single result line",
			output: "result=2.0\n",
			want:   2.0,
			wantOK: true,
		},
		{
			name:   "progress before result",
			output: "iteration 1\nresult=2.0000001\n",
			want:   2.0000001,
			wantOK: true,
		},
		{
			name:   "kernel output format",
			output: "Serial Trapezoid: func=0 [0.000000, 3.141593] n=1000000 -> result=1.999999999998 time=0.012345 s\n",
			want:   1.999999999998,
			wantOK: true,
		},
		{
			name:   "last occurrence wins",
			output: "result=1.0\nresult=2.0\nresult=3.0\n",
			want:   3.0,
			wantOK: true,
		},
		{
			name:   "trailing noise after result",
			output: "result=1.5\nshutting down\nbye\n",
			want:   1.5,
			wantOK: true,
		},
		{
			name:   "malformed last line falls back to earlier line",
			output: "result=3.5\nresult=notanumber\n",
			want:   3.5,
			wantOK: true,
		},
		{
			name:   "marker with nothing after it",
			output: "result=4.25\nresult=\n",
			want:   4.25,
			wantOK: true,
		},
		{
			name:   "only malformed lines",
			output: "result=abc\nresult=\nresult=--1\n",
			wantOK: false,
		},
		{
			name:   "crlf line endings",
			output: "warmup\r\nresult=0.333333\r\n",
			want:   0.333333,
			wantOK: true,
		},
		{
			name:   "scientific notation",
			output: "result=1.5e-3 units\n",
			want:   0.0015,
			wantOK: true,
		},
		{
			name:   "negative value",
			output: "result=-0.5\n",
			want:   -0.5,
			wantOK: true,
		},
		{
			name:   "no trailing newline",
			output: "result=7",
			want:   7,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Result(tt.output)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-15)
			}
		})
	}
}

func TestValue_CustomMarker(t *testing.T) {
	out := "ranks=4 -> result=0.5 time=0.250000 s\n"

	v, ok := Value(out, "ranks=")
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, ok = Value(out, "")
	assert.False(t, ok, "empty marker never matches")
}

func TestKernelTime(t *testing.T) {
	d, ok := KernelTime("OpenMP Trapezoid: threads=4 -> result=2.000000000000 time=0.250000 s\n")
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	_, ok = KernelTime("result=2.0\n")
	assert.False(t, ok)

	_, ok = KernelTime("time=-1\n")
	assert.False(t, ok, "negative kernel time is rejected")
}
