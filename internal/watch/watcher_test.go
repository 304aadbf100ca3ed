package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trapbench/trapbench/internal/backend"
)

// TestNewWatcher verifies that a new watcher is idle.
func TestNewWatcher(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	assert.False(t, w.IsRunning())
}

// TestWatcher_StartStop verifies that the watcher can start and stop cleanly.
func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)

	require.NoError(t, w.Start(t.TempDir()))
	assert.True(t, w.IsRunning())

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	// Channels are closed after Stop.
	_, ok := <-w.Events()
	assert.False(t, ok)

	// Stop is idempotent.
	require.NoError(t, w.Stop())
}

func TestWatcher_StartTwice(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	dir := t.TempDir()
	require.NoError(t, w.Start(dir))
	assert.Error(t, w.Start(dir))
}

func TestWatcher_StartMissingDir(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(filepath.Join(t.TempDir(), "absent")))
}

func TestConvertEvent(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{binDir: dir, goos: "linux"}

	tests := []struct {
		name   string
		event  fsnotify.Event
		want   Event
		wantOK bool
	}{
		{
			name:   "create serial",
			event:  fsnotify.Event{Name: filepath.Join(dir, "serial"), Op: fsnotify.Create},
			want:   Event{Path: filepath.Join(dir, "serial"), Kind: backend.KindSerial, Op: OpCreate},
			wantOK: true,
		},
		{
			name:   "write mpi",
			event:  fsnotify.Event{Name: filepath.Join(dir, "mpi"), Op: fsnotify.Write},
			want:   Event{Path: filepath.Join(dir, "mpi"), Kind: backend.KindMPI, Op: OpModify},
			wantOK: true,
		},
		{
			name:   "remove openmp",
			event:  fsnotify.Event{Name: filepath.Join(dir, "openmp"), Op: fsnotify.Remove},
			want:   Event{Path: filepath.Join(dir, "openmp"), Kind: backend.KindOpenMP, Op: OpDelete},
			wantOK: true,
		},
		{
			name:   "rename is delete",
			event:  fsnotify.Event{Name: filepath.Join(dir, "serial"), Op: fsnotify.Rename},
			want:   Event{Path: filepath.Join(dir, "serial"), Kind: backend.KindSerial, Op: OpDelete},
			wantOK: true,
		},
		{
			name:  "chmod ignored",
			event: fsnotify.Event{Name: filepath.Join(dir, "serial"), Op: fsnotify.Chmod},
		},
		{
			name:  "object file ignored",
			event: fsnotify.Event{Name: filepath.Join(dir, "serial.o"), Op: fsnotify.Create},
		},
		{
			name:  "other directory ignored",
			event: fsnotify.Event{Name: filepath.Join(dir, "sub", "serial"), Op: fsnotify.Create},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.convertEvent(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConvertEvent_WindowsSuffix(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{binDir: dir, goos: "windows"}

	_, ok := w.convertEvent(fsnotify.Event{Name: filepath.Join(dir, "serial"), Op: fsnotify.Create})
	assert.False(t, ok)

	got, ok := w.convertEvent(fsnotify.Event{Name: filepath.Join(dir, "serial.exe"), Op: fsnotify.Create})
	require.True(t, ok)
	assert.Equal(t, backend.KindSerial, got.Kind)
}

// TestWatcher_DetectsArtifact writes a real file and waits for the event.
func TestWatcher_DetectsArtifact(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file system watch test in short mode")
	}

	dir := t.TempDir()
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()
	require.NoError(t, w.Start(dir))

	// Noise first: not an artifact.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openmp"), []byte("#!/bin/sh\n"), 0755))

	select {
	case ev := <-w.Events():
		assert.Equal(t, backend.KindOpenMP, ev.Kind)
		assert.Contains(t, []EventOp{OpCreate, OpModify}, ev.Op)
	case err := <-w.Errors():
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for artifact event")
	}
}

func TestDebounce_CoalescesBurst(t *testing.T) {
	events := make(chan Event, 10)
	var got []Event

	events <- Event{Kind: backend.KindSerial, Op: OpCreate}
	events <- Event{Kind: backend.KindSerial, Op: OpModify}
	events <- Event{Kind: backend.KindMPI, Op: OpModify}
	close(events)

	Debounce(context.Background(), events, time.Hour, func(ev Event) {
		got = append(got, ev)
	})

	require.Len(t, got, 1, "closing the channel flushes the pending burst")
	assert.Equal(t, backend.KindMPI, got[0].Kind)
}

func TestDebounce_SeparateBursts(t *testing.T) {
	events := make(chan Event)
	calls := make(chan Event, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Debounce(ctx, events, 20*time.Millisecond, func(ev Event) { calls <- ev })

	events <- Event{Kind: backend.KindSerial, Op: OpCreate}
	first := <-calls
	assert.Equal(t, backend.KindSerial, first.Kind)

	events <- Event{Kind: backend.KindOpenMP, Op: OpCreate}
	second := <-calls
	assert.Equal(t, backend.KindOpenMP, second.Kind)
}

func TestDebounce_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	Debounce(ctx, make(chan Event), time.Millisecond, func(Event) { called = true })
	assert.False(t, called)
}
