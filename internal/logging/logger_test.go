package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel("DEBUG"), slog.LevelDebug},
		{LogLevel("verbose"), slog.LevelInfo},
		{LogLevel(""), slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(string(tc.level), func(t *testing.T) {
			if got := ParseLevel(tc.level); got != tc.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.level, got, tc.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	originalLogger := defaultLogger
	defer func() { defaultLogger = originalLogger }()

	var buf bytes.Buffer
	SetupLogger(&buf, LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line", "tool", "get_ticket")
	Error("error line")

	output := buf.String()
	for _, unwanted := range []string{"debug line", "info line"} {
		if strings.Contains(output, unwanted) {
			t.Errorf("did not expect %q at warn level, got: %s", unwanted, output)
		}
	}
	for _, wanted := range []string{"warn line", "tool=get_ticket", "error line"} {
		if !strings.Contains(output, wanted) {
			t.Errorf("expected %q in output, got: %s", wanted, output)
		}
	}
}

func TestWithOperation(t *testing.T) {
	originalLogger := defaultLogger
	defer func() { defaultLogger = originalLogger }()

	var buf bytes.Buffer
	SetupLogger(&buf, LevelInfo)

	WithOperation("search_tickets", "provider", "linear").Info("tool completed", "count", 3)

	output := buf.String()
	for _, wanted := range []string{"operation=search_tickets", "provider=linear", "count=3"} {
		if !strings.Contains(output, wanted) {
			t.Errorf("expected %q in output, got: %s", wanted, output)
		}
	}
}

func TestSetupFileLogger(t *testing.T) {
	originalLogger := defaultLogger
	defer func() { defaultLogger = originalLogger }()

	path := filepath.Join(t.TempDir(), "logs", "glue-mcp.log")
	closeFn, err := SetupFileLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("SetupFileLogger returned error: %v", err)
	}

	Info("written to file", "ticket", "ENG-1")
	if err := closeFn(); err != nil {
		t.Fatalf("closing log file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") || !strings.Contains(string(data), "ticket=ENG-1") {
		t.Errorf("log file missing entry, got: %s", data)
	}
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Linear API key", input: "lin_api_0123456789", expected: "lin_...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if result := MaskSensitive(tc.input); result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetLogger(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
}
