package logging

import (
	"context"
	"log"
	"log/slog"
	"strings"
)

// Writer is an io.Writer that forwards lines written by stdlib loggers to slog.
type Writer struct {
	logger *slog.Logger
	msg    string
	level  slog.Level
}

// NewWriter constructs a Writer that logs each write as msg at level.
func NewWriter(logger *slog.Logger, level slog.Level, msg string) *Writer {
	return &Writer{logger: logger, msg: msg, level: level}
}

// Write logs the given bytes as a single line.
func (w *Writer) Write(p []byte) (int, error) {
	if w.logger != nil {
		line := strings.TrimRight(string(p), "\n")
		if line != "" {
			w.logger.Log(context.Background(), w.level, w.msg, "line", line)
		}
	}
	return len(p), nil
}

// StdLogger returns a *log.Logger backed by a Writer, for APIs such as
// http.Server.ErrorLog that only accept the stdlib logger.
func StdLogger(logger *slog.Logger, level slog.Level, msg string) *log.Logger {
	return log.New(NewWriter(logger, level, msg), "", 0)
}
