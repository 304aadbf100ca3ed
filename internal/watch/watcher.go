// Package watch notices when backend executables appear, change or
// disappear in the bin directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/trapbench/trapbench/internal/backend"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new artifact was created.
	OpCreate EventOp = iota
	// OpModify indicates an existing artifact was rewritten.
	OpModify
	// OpDelete indicates an artifact was removed or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a change to one backend artifact.
type Event struct {
	// Path is the artifact that changed.
	Path string
	// Kind is the backend the artifact belongs to.
	Kind backend.Kind
	// Op is the operation that occurred.
	Op EventOp
}

// Watcher watches the bin directory for backend artifact changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	closed  bool
	binDir  string
	goos    string
}

// NewWatcher creates a Watcher. It emits nothing until Start is called.
func NewWatcher() (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		goos:    runtime.GOOS,
	}, nil
}

// Start begins watching binDir, which must exist.
func (w *Watcher) Start(binDir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if w.closed {
		return fmt.Errorf("watcher already stopped")
	}

	abs, err := filepath.Abs(binDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", binDir, err)
	}
	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch bin directory %s: %w", binDir, err)
	}

	w.binDir = abs
	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and releases resources. It blocks until the event
// loop has exited, then closes the Events and Errors channels.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	wasRunning := w.running
	w.running = false
	w.closed = true
	w.mu.Unlock()

	// Signal shutdown
	close(w.done)

	// Close the underlying watcher (this will unblock the event loop)
	err := w.watcher.Close()

	if wasRunning {
		w.wg.Wait()
	}
	close(w.events)
	close(w.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel of artifact changes. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents converts fsnotify events until Stop is called.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if ev, ok := w.convertEvent(event); ok {
				select {
				case w.events <- ev:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event to an artifact Event. Files that are
// not backend artifacts are ignored, as are chmod-only events.
func (w *Watcher) convertEvent(event fsnotify.Event) (Event, bool) {
	kind, ok := w.artifactKind(event.Name)
	if !ok {
		return Event{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		// Treat rename as delete (the new name will trigger a create)
		op = OpDelete
	default:
		return Event{}, false
	}

	return Event{Path: event.Name, Kind: kind, Op: op}, true
}

// artifactKind reports which backend an artifact path belongs to.
func (w *Watcher) artifactKind(path string) (backend.Kind, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, false
	}
	for _, k := range backend.Kinds {
		if abs == backend.ArtifactPath(w.binDir, k, w.goos) {
			return k, true
		}
	}
	return 0, false
}

// Debounce calls fn once per burst of events: a compiler rewriting an
// executable produces several writes, and fn should see only the last one.
// A burst ends when no event arrived for window. Debounce returns when ctx
// is done or events is closed, flushing a pending burst in the latter case.
func Debounce(ctx context.Context, events <-chan Event, window time.Duration, fn func(Event)) {
	timer := time.NewTimer(window)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var pending *Event
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				if pending != nil {
					fn(*pending)
				}
				return
			}
			pending = &ev
			timer.Reset(window)

		case <-timer.C:
			if pending != nil {
				fn(*pending)
				pending = nil
			}
		}
	}
}
