package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		if got := test.level.String(); got != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, got, test.expected)
		}
	}
}

func TestInitAndLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)

	Debug("Test", "debug message")
	Info("Test", "info message")
	if buf.Len() != 0 {
		t.Fatalf("expected debug/info to be suppressed at Warn level, got: %s", buf.String())
	}

	Warn("Test", "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Fatalf("expected warn message to be logged, got: %s", buf.String())
	}
}

func TestErrorIncludesErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)

	Error("Test", errors.New("boom"), "operation failed")
	out := buf.String()
	if !strings.Contains(out, "operation failed") || !strings.Contains(out, "boom") {
		t.Fatalf("expected error and message in output, got: %s", out)
	}
}

func TestEnsureLoggerDefaultsWhenUninitialized(t *testing.T) {
	defaultLogger = nil
	// Should not panic and should lazily initialize a default logger.
	Info("Test", "message after reset")
	if defaultLogger == nil {
		t.Fatal("expected ensureLogger to initialize defaultLogger")
	}
}
