package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trapbench/trapbench/internal/benchmark"
)

// openTestStore returns an initialised store in a temporary directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func f64(v float64) *float64 { return &v }

func recordRun(t *testing.T, s *Store, id string, started time.Time, rows ...benchmark.Row) {
	t.Helper()
	ctx := context.Background()
	rec, err := s.BeginRun(ctx, RunInfo{
		ID:        id,
		StartedAt: started,
		Config:    benchmark.DefaultConfig(),
		Host:      "node-1",
		GitCommit: "abc1234",
	})
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, rec.WriteRow(r))
	}
	require.NoError(t, rec.Finish(ctx, started.Add(time.Minute)))
}

func TestInitSchema_Tables(t *testing.T) {
	s := openTestStore(t)

	for _, table := range []string{"runs", "results", "failures"} {
		var count int
		err := s.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s", table)
	}

	// Idempotent
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestRecorder_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	started := time.Date(2026, 5, 1, 9, 30, 0, 123456789, time.UTC)

	recordRun(t, s, "run-1", started,
		benchmark.Row{Program: "serial", Workers: 1, N: 1000000, TimeMin: 0.9, TimeMedian: 1.0, TimeMean: 1.1, Result: f64(0.4596976941), KernelTime: f64(0.8)},
		benchmark.Row{Program: "openmp", Workers: 4, N: 1000000, TimeMin: 0.2, TimeMedian: 0.25, TimeMean: 0.3},
	)

	runs, err := s.Runs(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "run-1", run.ID)
	assert.True(t, started.Equal(run.StartedAt))
	require.NotNil(t, run.FinishedAt)
	assert.True(t, started.Add(time.Minute).Equal(*run.FinishedAt))
	assert.Equal(t, benchmark.DefaultConfig(), run.Config)
	assert.Equal(t, "node-1", run.Host)
	assert.Equal(t, "abc1234", run.GitCommit)
	assert.Equal(t, 2, run.Rows)
	assert.Equal(t, 0, run.Failures)

	entries, err := s.Rows(context.Background(), Filter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "serial", entries[0].Row.Program)
	require.NotNil(t, entries[0].Row.Result)
	assert.Equal(t, 0.4596976941, *entries[0].Row.Result)
	require.NotNil(t, entries[0].Row.KernelTime)
	assert.Equal(t, 0.8, *entries[0].Row.KernelTime)

	assert.Equal(t, "openmp", entries[1].Row.Program)
	assert.Equal(t, 4, entries[1].Row.Workers)
	assert.Nil(t, entries[1].Row.Result, "absent result stays absent")
	assert.Nil(t, entries[1].Row.KernelTime)
}

func TestRows_Filters(t *testing.T) {
	s := openTestStore(t)
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	recordRun(t, s, "old", old,
		benchmark.Row{Program: "serial", Workers: 1, N: 10},
		benchmark.Row{Program: "mpi", Workers: 2, N: 10},
	)
	recordRun(t, s, "recent", recent,
		benchmark.Row{Program: "serial", Workers: 1, N: 10},
		benchmark.Row{Program: "mpi", Workers: 2, N: 10},
		benchmark.Row{Program: "mpi", Workers: 4, N: 10},
	)

	ctx := context.Background()

	all, err := s.Rows(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "old", all[0].RunID, "oldest run first")

	mpi, err := s.Rows(ctx, Filter{Program: "mpi"})
	require.NoError(t, err)
	assert.Len(t, mpi, 3)

	since, err := s.Rows(ctx, Filter{Since: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Program: "mpi"})
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "recent", since[0].RunID)

	runs, err := s.Runs(ctx, Filter{Since: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "recent", runs[0].ID)

	runs, err = s.Runs(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "recent", runs[0].ID, "newest run first")
}

func TestRecorder_Failures(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.BeginRun(ctx, RunInfo{ID: "run-f", StartedAt: time.Now(), Config: benchmark.DefaultConfig()})
	require.NoError(t, err)
	assert.Equal(t, "run-f", rec.RunID())

	// Usable through the orchestrator's sink interfaces.
	var sink benchmark.RowSink = rec
	fr, ok := sink.(benchmark.FailureRecorder)
	require.True(t, ok)

	fr.RecordFailure(benchmark.Failure{Program: "mpi", Workers: 4, Command: "mpirun -np 4 bin/mpi", Error: "exit status 1"})
	fr.RecordFailure(benchmark.Failure{Program: "openmp", Workers: 8, Command: "bin/openmp 0 1 10 0 8", Error: "killed"})
	require.NoError(t, rec.Finish(ctx, time.Now()))

	failures, err := s.Failures(ctx, "run-f")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "mpi", failures[0].Program)
	assert.Equal(t, "killed", failures[1].Error)

	runs, err := s.Runs(ctx, Filter{RunID: "run-f"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Failures)
}

func TestBeginRun_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	recordRun(t, s, "dup", time.Now())

	_, err := s.BeginRun(context.Background(), RunInfo{ID: "dup", StartedAt: time.Now()})
	assert.Error(t, err)
}

func TestFinish_UnknownRun(t *testing.T) {
	s := openTestStore(t)
	rec := &Recorder{store: s, runID: "ghost"}

	err := rec.Finish(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestClose_Idempotent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestTimeLayout_SortsLexicographically(t *testing.T) {
	a := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 5, time.UTC))
	b := formatTime(time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, time.UTC))
	assert.Less(t, a, b)

	back, err := parseTime(b)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, time.Duration(back.Nanosecond()))
}
