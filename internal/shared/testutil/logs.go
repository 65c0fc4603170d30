package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogCapture is a slog.Handler that keeps every record in memory.
// Attributes added through With are carried onto each record.
type LogCapture struct {
	store *logStore
	attrs []slog.Attr
	t     *testing.T
}

// NewTestLogger returns a logger writing into a LogCapture. Records are also
// echoed to the test log.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogCapture) {
	h := &LogCapture{store: &logStore{}, t: t}
	return slog.New(h), h
}

// Enabled captures every level.
func (h *LogCapture) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle records r.
func (h *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs returns a handler sharing the same store.
func (h *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &LogCapture{store: h.store, attrs: merged, t: h.t}
}

// WithGroup is flattened; groups do not matter to the assertions.
func (h *LogCapture) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of everything captured so far.
func (h *LogCapture) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return append([]LogRecord(nil), h.store.records...)
}

// Find returns the first record at level whose message contains msg.
func (h *LogCapture) Find(level slog.Level, msg string) (LogRecord, bool) {
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogged fails the test when no record at level contains msg.
func AssertLogged(t *testing.T, h *LogCapture, level slog.Level, msg string) LogRecord {
	t.Helper()
	r, ok := h.Find(level, msg)
	if !ok {
		t.Errorf("expected %s log containing %q", level, msg)
		for _, r := range h.Records() {
			t.Logf("  - [%s] %s", r.Level, r.Message)
		}
	}
	return r
}

// AssertNoErrors fails the test when an error-level record was captured.
func AssertNoErrors(t *testing.T, h *LogCapture) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
