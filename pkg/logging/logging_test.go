package logging

import (
	"bytes"
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
		{LogLevel(42), "UNKNOWN"},
	}

	for _, tc := range tests {
		if got := tc.level.String(); got != tc.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tc.level, got, tc.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"garbage", LevelInfo},
		{"", LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.name); got != tc.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.name, got, tc.expected)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)

	Debug("Test", "debug message")
	Info("Test", "info message")
	Warn("Test", "warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should pass at Warn level")
	}
}

func TestSubsystemAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Info("CredStore", "stored client %s", "acme")

	output := buf.String()
	if !strings.Contains(output, "subsystem=CredStore") {
		t.Errorf("expected subsystem attribute in output, got: %s", output)
	}
	if !strings.Contains(output, "stored client acme") {
		t.Errorf("expected formatted message in output, got: %s", output)
	}
}

func TestErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Exchange", errTest, "request failed")

	output := buf.String()
	if !strings.Contains(output, "error=boom") {
		t.Errorf("expected error attribute in output, got: %s", output)
	}
}

var errTest = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
