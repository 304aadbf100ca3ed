// Package history persists benchmark runs in an embedded SQLite database so
// results can be compared across builds and machines.
//
// Architecture:
//   - Database file: .trapbench/history.db (configurable)
//   - WAL mode: the history command can read while a sweep writes
//   - Schema: runs, results, failures tables
//
// A Recorder is a benchmark.RowSink: each row is committed as soon as the
// orchestrator produces it, so an interrupted sweep keeps its partial rows.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/trapbench/trapbench/internal/backend"
	"github.com/trapbench/trapbench/internal/benchmark"
)

// timeLayout is fixed width so timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the history database at path. Parent directories
// are created as needed. The caller MUST call Close.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The harness writes from one goroutine.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: path}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	// Checkpoint WAL before closing
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the tables if they do not exist. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		a REAL NOT NULL,
		b REAL NOT NULL,
		n INTEGER NOT NULL,
		func INTEGER NOT NULL,
		repeats INTEGER NOT NULL,
		host TEXT,
		git_commit TEXT
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		program TEXT NOT NULL,
		workers INTEGER NOT NULL,
		n INTEGER NOT NULL,
		time_min REAL NOT NULL,
		time_median REAL NOT NULL,
		time_mean REAL NOT NULL,
		result REAL,          -- NULL when the backend printed no result
		kernel_time REAL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS failures (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		program TEXT NOT NULL,
		workers INTEGER NOT NULL,
		command TEXT NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_results_program ON results(program, workers);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	Config    benchmark.Config
	Host      string
	GitCommit string
}

// BeginRun inserts the run record and returns a Recorder for its rows.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (*Recorder, error) {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, a, b, n, func, repeats, host, git_commit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID,
		formatTime(info.StartedAt),
		info.Config.A,
		info.Config.B,
		info.Config.N,
		int(info.Config.Func),
		info.Config.Repeats,
		info.Host,
		info.GitCommit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run %s: %w", info.ID, err)
	}
	return &Recorder{store: s, runID: info.ID}, nil
}

// Recorder appends rows and failures of one run.
type Recorder struct {
	store    *Store
	runID    string
	rows     int
	failures int
	errs     []error
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

// WriteRow implements benchmark.RowSink.
func (r *Recorder) WriteRow(row benchmark.Row) error {
	return r.AppendRow(context.Background(), row)
}

// AppendRow stores one result row.
func (r *Recorder) AppendRow(ctx context.Context, row benchmark.Row) error {
	_, err := r.store.conn.ExecContext(ctx, `
		INSERT INTO results (run_id, seq, program, workers, n, time_min, time_median, time_mean, result, kernel_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, r.rows,
		row.Program, row.Workers, row.N,
		row.TimeMin, row.TimeMedian, row.TimeMean,
		nullFloat(row.Result), nullFloat(row.KernelTime),
	)
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	r.rows++
	return nil
}

// RecordFailure implements benchmark.FailureRecorder. Errors are kept and
// reported by Finish.
func (r *Recorder) RecordFailure(f benchmark.Failure) {
	_, err := r.store.conn.Exec(`
		INSERT INTO failures (run_id, seq, program, workers, command, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.runID, r.failures, f.Program, f.Workers, f.Command, f.Error,
	)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("failed to insert failure: %w", err))
		return
	}
	r.failures++
}

// Finish stamps the run's end time.
func (r *Recorder) Finish(ctx context.Context, finishedAt time.Time) error {
	res, err := r.store.conn.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		formatTime(finishedAt), r.runID)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("failed to finish run: %w", err))
	} else if n, _ := res.RowsAffected(); n == 0 {
		r.errs = append(r.errs, fmt.Errorf("%w: %s", ErrRunNotFound, r.runID))
	}
	return errors.Join(r.errs...)
}

// Run is a stored run with its row count.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Config     benchmark.Config
	Host       string
	GitCommit  string
	Rows       int
	Failures   int
}

// Entry is a stored row together with the run it belongs to.
type Entry struct {
	RunID     string
	StartedAt time.Time
	Row       benchmark.Row
}

// Filter narrows queries. Zero fields match everything.
type Filter struct {
	Since   time.Time
	Program string
	RunID   string
}

// Runs lists runs started at or after f.Since, newest first.
func (s *Store) Runs(ctx context.Context, f Filter) ([]Run, error) {
	where, args := f.clauses("r.started_at", "")
	query := `
		SELECT r.id, r.started_at, r.finished_at, r.a, r.b, r.n, r.func, r.repeats,
		       COALESCE(r.host, ''), COALESCE(r.git_commit, ''),
		       (SELECT COUNT(*) FROM results WHERE run_id = r.id),
		       (SELECT COUNT(*) FROM failures WHERE run_id = r.id)
		FROM runs r` + where + `
		ORDER BY r.started_at DESC`

	rs, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rs.Close()

	var runs []Run
	for rs.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			fn       int
		)
		if err := rs.Scan(&run.ID, &started, &finished,
			&run.Config.A, &run.Config.B, &run.Config.N, &fn, &run.Config.Repeats,
			&run.Host, &run.GitCommit, &run.Rows, &run.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Config.Func = backend.Func(fn)
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rs.Err()
}

// Rows lists stored rows matching f, oldest run first and in sweep order
// within a run.
func (s *Store) Rows(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := f.clauses("r.started_at", "w.program")
	query := `
		SELECT w.run_id, r.started_at, w.program, w.workers, w.n,
		       w.time_min, w.time_median, w.time_mean, w.result, w.kernel_time
		FROM results w
		JOIN runs r ON r.id = w.run_id` + where + `
		ORDER BY r.started_at, w.seq`

	rs, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rs.Close()

	var entries []Entry
	for rs.Next() {
		var (
			e       Entry
			started string
			result  sql.NullFloat64
			kernel  sql.NullFloat64
		)
		if err := rs.Scan(&e.RunID, &started, &e.Row.Program, &e.Row.Workers, &e.Row.N,
			&e.Row.TimeMin, &e.Row.TimeMedian, &e.Row.TimeMean, &result, &kernel); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if e.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if result.Valid {
			v := result.Float64
			e.Row.Result = &v
		}
		if kernel.Valid {
			v := kernel.Float64
			e.Row.KernelTime = &v
		}
		entries = append(entries, e)
	}
	return entries, rs.Err()
}

// Failures lists the failed invocations of one run in sweep order.
func (s *Store) Failures(ctx context.Context, runID string) ([]benchmark.Failure, error) {
	rs, err := s.conn.QueryContext(ctx, `
		SELECT program, workers, command, error FROM failures
		WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rs.Close()

	var out []benchmark.Failure
	for rs.Next() {
		var f benchmark.Failure
		if err := rs.Scan(&f.Program, &f.Workers, &f.Command, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rs.Err()
}

// clauses builds a WHERE clause. An empty programCol ignores f.Program.
func (f Filter) clauses(timeCol, programCol string) (string, []any) {
	var conds []string
	var args []any
	if !f.Since.IsZero() {
		conds = append(conds, timeCol+" >= ?")
		args = append(args, formatTime(f.Since))
	}
	if f.Program != "" && programCol != "" {
		conds = append(conds, programCol+" = ?")
		args = append(args, f.Program)
	}
	if f.RunID != "" {
		conds = append(conds, "r.id = ?")
		args = append(args, f.RunID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
