// Package storelog provides the structured logger used throughout the
// store: a thin wrapper around log/slog that optionally tees output to
// a size-rotated file alongside stderr.
package storelog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is the minimum level logged. Defaults to slog.LevelInfo.
	Level slog.Level

	// JSON selects slog.JSONHandler over slog.TextHandler. Daemons and
	// long-running servers generally want JSON; interactive use wants
	// text.
	JSON bool

	// FilePath, if non-empty, tees logging output to a rotating file in
	// addition to stderr.
	FilePath string

	// FileMaxSizeMB is the rotation threshold for FilePath, in
	// megabytes. Defaults to 100 if FilePath is set and this is zero.
	FileMaxSizeMB int

	// FileMaxBackups is the number of rotated files to retain. Defaults
	// to 3 if FilePath is set and this is zero.
	FileMaxBackups int
}

// New builds a *slog.Logger per opts. Callers that don't need a file
// sink can pass a zero Options{}.
func New(opts Options) *slog.Logger {
	var w io.Writer = os.Stderr
	if opts.FilePath != "" {
		maxSize := opts.FileMaxSizeMB
		if maxSize == 0 {
			maxSize = 100
		}
		maxBackups := opts.FileMaxBackups
		if maxBackups == 0 {
			maxBackups = 3
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything, for tests and
// library callers that don't want the store's logging on by default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
