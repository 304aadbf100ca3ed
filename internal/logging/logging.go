// Package logging builds the harness's structured logger.
//
// Records go to stderr as human-readable text and, when a log file is
// configured, additionally to a size-rotated file as JSON lines.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrUnknownLevel is returned by ParseLevel for an unrecognised level name.
var ErrUnknownLevel = errors.New("unknown log level")

// Config configures New. A zero Config logs Info and above to stderr.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// File, when set, receives JSON records through a rotating writer.
	File string

	// JSON switches the stderr handler from text to JSON.
	JSON bool

	// MaxSizeMB is the rotation threshold of File. Zero means 10.
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept. Zero means 3.
	MaxBackups int

	// Stderr overrides the console destination (tests).
	Stderr io.Writer
}

// Logger is a *slog.Logger plus the resources it owns.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// New creates a Logger from config.
func New(config Config) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	stderr := config.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var console slog.Handler
	if config.JSON {
		console = slog.NewJSONHandler(stderr, opts)
	} else {
		console = slog.NewTextHandler(stderr, opts)
	}

	logger := &Logger{}
	handler := console

	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		maxSize := config.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := config.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}

		logger.file = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		}
		// Always use JSON for file logs (machine-parseable)
		handler = &multiHandler{handlers: []slog.Handler{
			console,
			slog.NewJSONHandler(logger.file, opts),
		}}
	}

	logger.Logger = slog.New(handler)
	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// multiHandler fans out log records to multiple slog handlers.
type multiHandler struct {
	handlers []slog.Handler
}

// Enabled returns true if any handler is enabled for the level.
func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle sends the record to all enabled handlers.
func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WithAttrs returns a new handler with additional attributes.
func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup returns a new handler with a group name.
func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
