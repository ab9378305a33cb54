package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFatal, "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if tt.level.String() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.level.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"bogus", LevelInfo}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	logger.Info("decision recorded")

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Errorf("expected output to contain 'INFO', got: %s", output)
	}
	if !strings.Contains(output, "decision recorded") {
		t.Errorf("expected output to contain message, got: %s", output)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelWarn})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be present")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message should be present")
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	engineLog := logger.WithComponent("Decision")
	engineLog.output = &buf
	engineLog.Info("scored 5 strategies")

	output := buf.String()
	if !strings.Contains(output, "[Decision]") {
		t.Errorf("expected output to contain '[Decision]', got: %s", output)
	}
}

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	fieldLog := logger.WithField("strategy", "circuit_breaker")
	fieldLog.output = &buf
	fieldLog.Info("outcome recorded")

	output := buf.String()
	if !strings.Contains(output, "strategy=circuit_breaker") {
		t.Errorf("expected output to contain field, got: %s", output)
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	fieldLog := logger.WithFields(map[string]interface{}{
		"decision_id": "d-42",
		"trigger":     "timeout",
	})
	fieldLog.output = &buf
	fieldLog.Info("decision made")

	output := buf.String()
	if !strings.Contains(output, "decision_id=d-42") {
		t.Errorf("expected output to contain 'decision_id=d-42', got: %s", output)
	}
	if !strings.Contains(output, "trigger=timeout") {
		t.Errorf("expected output to contain 'trigger=timeout', got: %s", output)
	}
}

func TestLoggerFieldsDoNotLeakToParent(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	_ = logger.WithField("decision_id", "d-1")
	logger.Info("parent message")

	if strings.Contains(buf.String(), "decision_id") {
		t.Errorf("parent logger should not carry derived fields, got: %s", buf.String())
	}
}

func TestLoggerShowCaller(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug, ShowCaller: true})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	logger.Info("with caller")

	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("expected output to contain caller info, got: %s", buf.String())
	}
}

func TestLoggerFileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "arbiter.log")

	logger := New(&Config{Level: LevelDebug, FilePath: logPath, Colored: true})
	defer logger.Close()
	logger.showTime = false
	logger.output = &bytes.Buffer{}

	logger.Info("file sink test")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), "file sink test") {
		t.Errorf("expected log file to contain message, got: %s", string(content))
	}
	if strings.Contains(string(content), "\033[") {
		t.Errorf("file sink should be free of ANSI codes, got: %q", string(content))
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf
	SetGlobal(logger)

	Info("global message")

	if !strings.Contains(buf.String(), "global message") {
		t.Errorf("expected output to contain message, got: %s", buf.String())
	}
}

func TestEnableVerbose(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelInfo})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf
	SetGlobal(logger)

	Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message should be filtered before EnableVerbose")
	}

	EnableVerbose()

	Debug("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Errorf("debug message should appear after EnableVerbose, got: %s", buf.String())
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	done := logger.Trace("Decide")
	done()

	output := buf.String()
	if !strings.Contains(output, "ENTER Decide") {
		t.Errorf("expected ENTER trace, got: %s", output)
	}
	if !strings.Contains(output, "EXIT  Decide") {
		t.Errorf("expected EXIT trace, got: %s", output)
	}
}

func TestSQL(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: LevelDebug})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	logger.SQL("INSERT INTO strategy_outcomes\n  (strategy, success)\nVALUES (?, ?)", "immediate", true)

	output := buf.String()
	if !strings.Contains(output, "SQL: INSERT INTO strategy_outcomes (strategy, success) VALUES (?, ?)") {
		t.Errorf("expected collapsed SQL line, got: %s", output)
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"\033[31mRed\033[0m", "Red"},
		{"\033[32mGreen\033[0m text", "Green text"},
		{"plain", "plain"},
		{"\033[1m\033[34mBold Blue\033[0m", "Bold Blue"},
	}

	for _, tt := range tests {
		if got := stripANSI(tt.input); got != tt.expected {
			t.Errorf("stripANSI(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected LevelInfo, got %v", cfg.Level)
	}
	if !cfg.Colored {
		t.Error("expected Colored to be true")
	}
	if cfg.ShowCaller {
		t.Error("expected ShowCaller to be false")
	}
}

func TestVerboseConfig(t *testing.T) {
	cfg := VerboseConfig()

	if cfg.Level != LevelDebug {
		t.Errorf("expected LevelDebug, got %v", cfg.Level)
	}
	if !cfg.ShowCaller {
		t.Error("expected ShowCaller to be true for verbose")
	}
}

func BenchmarkLoggerInfo(b *testing.B) {
	var buf bytes.Buffer
	logger := New(&Config{Level: LevelInfo})
	logger.colored = false
	logger.showTime = false
	logger.output = &buf

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message %d", i)
	}
}
