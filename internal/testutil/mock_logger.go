// Package testutil holds test doubles shared across packages.
package testutil

import (
	"context"
	"sync"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.  Fields include those added via With.
type LogEntry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

type logStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// MockLogger implements logging.Logger and records every entry.  Loggers
// derived through With and Named share the parent's record.
type MockLogger struct {
	store  *logStore
	name   string
	fields []logging.Field
}

func NewMockLogger() *MockLogger {
	return &MockLogger{store: &logStore{}}
}

func (m *MockLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{Level: level, Logger: m.name, Message: msg, Fields: all})
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.log("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.log("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.log("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.log("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.log("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	child := *m
	child.fields = append(append([]logging.Field{}, m.fields...), fields...)
	return &child
}

func (m *MockLogger) WithContext(ctx context.Context) logging.Logger { return m }

func (m *MockLogger) WithError(err error) logging.Logger { return m.With(logging.Err(err)) }

func (m *MockLogger) Named(name string) logging.Logger {
	child := *m
	if child.name == "" {
		child.name = name
	} else {
		child.name = m.name + "." + name
	}
	return &child
}

func (m *MockLogger) Sync() error { return nil }

// Entries returns a copy of the captured entries.
func (m *MockLogger) Entries() []LogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make([]LogEntry, len(m.store.entries))
	copy(out, m.store.entries)
	return out
}

func (m *MockLogger) Clear() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = nil
}

// HasMessage reports whether msg was logged at level.
func (m *MockLogger) HasMessage(level, msg string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

// HasField reports whether any entry carries key with value.
func (m *MockLogger) HasField(key string, value interface{}) bool {
	for _, e := range m.Entries() {
		for _, f := range e.Fields {
			if f.Key == key && f.Value == value {
				return true
			}
		}
	}
	return false
}
