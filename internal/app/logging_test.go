package app

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LogLevelDebug, "DEBUG"},
		{LogLevelInfo, "INFO"},
		{LogLevelWarn, "WARN"},
		{LogLevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"loud", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}

func TestLoggerWritesLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf, Prefix: "test"})

	logger.Info("hello %s", "world")

	line := buf.String()
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("missing level tag: %q", line)
	}
	if !strings.Contains(line, "test: hello world") {
		t.Errorf("missing prefix or message: %q", line)
	}
	if !strings.HasSuffix(line, "\n") {
		t.Errorf("line not newline-terminated: %q", line)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelWarn, Output: &buf})

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level message written: %q", out)
	}
	if strings.Count(out, "kept") != 2 {
		t.Errorf("expected 2 kept lines, got %q", out)
	}
}

func TestLoggerFieldsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	logger.WithField("zeta", 1).WithField("alpha", 2).Info("msg")

	if !strings.Contains(buf.String(), "{alpha=2, zeta=1}") {
		t.Errorf("fields not in sorted order: %q", buf.String())
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Output: &buf})

	derived := logger.WithComponent("store")
	derived.Info("msg")

	if !strings.Contains(buf.String(), "component=store") {
		t.Errorf("missing component field: %q", buf.String())
	}

	// The parent is unchanged.
	buf.Reset()
	logger.Info("msg")
	if strings.Contains(buf.String(), "component") {
		t.Errorf("parent picked up derived field: %q", buf.String())
	}
}

func TestNullLogger(t *testing.T) {
	var buf bytes.Buffer
	NullLogger.SetOutput(&buf)
	NullLogger.Error("nothing")

	if buf.Len() != 0 {
		t.Errorf("NullLogger wrote output: %q", buf.String())
	}
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelError, Output: &buf})

	logger.Info("dropped")
	logger.SetLevel(LogLevelDebug)
	logger.Info("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("SetLevel not applied: %q", out)
	}
}

func TestGetLogger(t *testing.T) {
	logger := GetLogger()
	if logger == nil {
		t.Fatal("GetLogger() returned nil")
	}

	if GetLogger() != logger {
		t.Error("GetLogger() should return the same instance")
	}

	var zero App
	if zero.Logger() != logger {
		t.Error("zero-value App should fall back to the process logger")
	}
}
