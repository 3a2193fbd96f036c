// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"log/slog"
	"testing"
)

// logSink forwards structured log output to the test's own log, so
// pipeline logging shows up only for failing tests or under -v.
type logSink struct {
	tb testing.TB
}

func (s logSink) Write(p []byte) (int, error) {
	s.tb.Helper()
	s.tb.Log(string(p))
	return len(p), nil
}

// NewTestLogger returns a debug-level slog.Logger bound to tb.
func NewTestLogger(tb testing.TB) *slog.Logger {
	tb.Helper()
	handler := slog.NewTextHandler(logSink{tb: tb}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(handler)
}
