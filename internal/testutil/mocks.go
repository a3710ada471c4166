package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/micasa/marketer/internal/logging"
)

// MockLogger implements logging.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level   string
	Type    logging.TypeEnum
	Message string
}

func (m *MockLogger) record(level string, t logging.TypeEnum, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Message: fmt.Sprintf(format, args...)})
}

func (m *MockLogger) Debugf(t logging.TypeEnum, format string, args ...any) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t logging.TypeEnum, format string, args ...any) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Warnf(t logging.TypeEnum, format string, args ...any) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Errorf(t logging.TypeEnum, format string, args ...any) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Close() {}

// Contains reports whether any entry at level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}
