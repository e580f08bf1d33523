package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestInitializeWithConfig_Stderr(t *testing.T) {
	InitializeWithConfig(Config{Level: "INFO", Format: "text"})
	t.Cleanup(func() { Close() })

	if GetLogger() == nil {
		t.Fatal("Logger should be initialized")
	}
	if GetFile() != "" {
		t.Errorf("Expected no log file, got %s", GetFile())
	}
}

func TestInitializeWithConfig_ExplicitLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "wxctl.log")

	InitializeWithConfig(Config{Level: "INFO", Format: "text", File: logFile})
	t.Cleanup(func() { Close() })

	if GetFile() != logFile {
		t.Errorf("Expected log file %s, got %s", logFile, GetFile())
	}

	Info("written to file")
	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "written to file") {
		t.Error("Log file should contain 'written to file'")
	}
}

func TestInitializeWithConfig_RelativeFileUsesLogDir(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("WXCTL_DATA_DIR", dataDir)

	InitializeWithConfig(Config{File: "wxctl.log"})
	t.Cleanup(func() { Close() })

	if !strings.HasPrefix(GetFile(), dataDir) {
		t.Errorf("Expected log file under %s, got %s", dataDir, GetFile())
	}
	if filepath.Base(GetFile()) != "wxctl.log" {
		t.Errorf("Expected file name wxctl.log, got %s", filepath.Base(GetFile()))
	}
}

func TestLogLevelParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			InitializeWithConfig(Config{Level: tt.input, Format: "text"})

			if GetLevel() != tt.expected {
				t.Errorf("For input %q, expected level %v, got %v", tt.input, tt.expected, GetLevel())
			}
		})
	}
}

func TestEnvironmentFallback(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("WXCTL_DEBUG", "1")

	InitializeWithConfig(Config{})

	if GetLevel() != slog.LevelDebug {
		t.Errorf("Expected DEBUG from WXCTL_DEBUG, got %v", GetLevel())
	}
	if GetFormat() != "json" {
		t.Errorf("Expected json from LOG_FORMAT, got %s", GetFormat())
	}

	t.Setenv("LOG_LEVEL", "error")
	InitializeWithConfig(Config{})
	if GetLevel() != slog.LevelError {
		t.Errorf("LOG_LEVEL should win over WXCTL_DEBUG, got %v", GetLevel())
	}

	InitializeWithConfig(Config{Level: "warn"})
	if GetLevel() != slog.LevelWarn {
		t.Errorf("Config level should win over LOG_LEVEL, got %v", GetLevel())
	}
}

func TestLoggingFunctions(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	InitializeWithConfig(Config{Level: "DEBUG", Format: "text", File: logFile})
	t.Cleanup(func() { Close() })

	Debug("test debug", "key", "value")
	Info("test info", "key", "value")
	Warn("test warn", "key", "value")
	Error("test error", "key", "value")

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for _, want := range []string{"test debug", "test info", "test warn", "test error"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("Log file should contain %q", want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "json.log")

	InitializeWithConfig(Config{Level: "INFO", Format: "json", File: logFile})
	t.Cleanup(func() { Close() })

	Info("json entry", "records", 42)

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"json entry"`) {
		t.Errorf("Expected JSON log line, got %s", content)
	}
	if !strings.Contains(string(content), `"records":42`) {
		t.Errorf("Expected records attribute, got %s", content)
	}
}

// TestConcurrentAccess verifies thread-safety of logging while the logger is rebuilt
func TestConcurrentAccess(t *testing.T) {
	tmpDir := t.TempDir()

	const numGoroutines = 20
	var wg sync.WaitGroup
	wg.Add(numGoroutines * 2)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("concurrent info", "goroutine", id, "iteration", j)
				_ = GetLevel()
				_ = GetFormat()
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			InitializeWithConfig(Config{
				Level: "DEBUG",
				File:  filepath.Join(tmpDir, fmt.Sprintf("log-%d.log", id)),
			})
		}(i)
	}

	wg.Wait()
	Close()
}

// TestClose verifies that Close releases the log file and is safe to repeat
func TestClose(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "close-test.log")

	InitializeWithConfig(Config{Level: "INFO", File: logFile})
	Info("test log before close")

	if err := Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
	if GetFile() != "" {
		t.Errorf("Expected no log file after Close(), got %s", GetFile())
	}
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Error("Log file should exist after Close()")
	}

	if err := Close(); err != nil {
		t.Errorf("Second Close() returned error: %v", err)
	}

	// Logging after Close must not panic.
	Info("test log after close")
}

// TestReinitialize verifies that reinitialization works correctly
func TestReinitialize(t *testing.T) {
	InitializeWithConfig(Config{Level: "INFO", Format: "text"})
	if GetLevel() != slog.LevelInfo {
		t.Errorf("Expected INFO level, got %v", GetLevel())
	}

	InitializeWithConfig(Config{Level: "DEBUG", Format: "json", File: filepath.Join(t.TempDir(), "test.log")})
	t.Cleanup(func() { Close() })

	if GetLevel() != slog.LevelDebug {
		t.Errorf("Expected DEBUG level after reinit, got %v", GetLevel())
	}
	if GetFormat() != "json" {
		t.Errorf("Expected json format after reinit, got %s", GetFormat())
	}
}
