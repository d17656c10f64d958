package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("round trip of %v gave %v, %v", level, parsed, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("expected default level Info, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected default output stderr, got %s", cfg.Output)
	}
	if cfg.LogTypedText {
		t.Error("typed text must not be logged by default")
	}
	if !strings.Contains(cfg.FilePath, "khiin") {
		t.Errorf("unexpected default log path %s", cfg.FilePath)
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		typed    bool
		redacted bool
	}{
		{"raw", false, true},
		{"preedit", false, true},
		{"committed", false, true},
		{"candidate", false, true},
		{"raw", true, false},
		{"preedit", true, false},
		{"password", true, true},
		{"api_key", false, true},
		{"refresh_token", true, true},
		{"state", false, false},
		{"command", false, false},
		{"caret", false, false},
	}

	for _, test := range tests {
		if got := shouldRedact(test.key, test.typed); got != test.redacted {
			t.Errorf("shouldRedact(%q, %v) = %v, want %v", test.key, test.typed, got, test.redacted)
		}
	}
}

func TestTypedTextRedaction(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: LevelDebug, Format: FormatJSON, Component: "test"}

	logger := NewWithWriter(&buf, cfg).WithComponent("bufmgr")
	logger.Info("insert", "raw", "goa2", "state", "composing")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["raw"] != Redacted {
		t.Errorf("raw = %v, want redacted", entry["raw"])
	}
	if entry["state"] != "composing" {
		t.Errorf("state = %v", entry["state"])
	}
	if entry["component"] != "bufmgr" {
		t.Errorf("component = %v", entry["component"])
	}

	buf.Reset()
	cfg.LogTypedText = true
	logger = NewWithWriter(&buf, cfg)
	if !logger.TypedTextLogged() {
		t.Error("TypedTextLogged should be true")
	}
	logger.Info("insert", "raw", "goa2")
	if !strings.Contains(buf.String(), "goa2") {
		t.Errorf("typed text missing from %q", buf.String())
	}
}

func TestRequestIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Component = "test"

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	id1 := logger.NewRequestID()
	id2 := logger.NewRequestID()
	if id1 == id2 {
		t.Error("NewRequestID returned duplicate IDs")
	}
	if !strings.HasPrefix(id1, "test-") {
		t.Errorf("NewRequestID should start with component name, got %q", id1)
	}

	ctx := ContextWithRequestID(context.Background(), id1)
	if got := RequestIDFromContext(ctx); got != id1 {
		t.Errorf("expected %q, got %q", id1, got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}
	if logger.WithContext(ctx) == logger {
		t.Error("WithContext should derive a new logger")
	}
}

func TestSetDefaultConcurrent(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	loggers := make([]*Logger, 4)
	for i := range loggers {
		loggers[i] = NewWithWriter(&bytes.Buffer{}, DefaultConfig())
	}

	var wg sync.WaitGroup
	for _, l := range loggers {
		l := l
		wg.Add(2)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				SetDefault(l)
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				if Default() == nil {
					t.Error("Default returned nil")
					return
				}
			}
		}()
	}
	wg.Wait()

	SetDefault(loggers[0])
	if Default() != loggers[0] {
		t.Error("Default should return the logger passed to SetDefault")
	}
}

func TestFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "khiin.log")

	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = logPath
	cfg.Format = FormatJSON

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	logger.Info("engine started", "mode", "continuous")
	if err := logger.Sync(); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(data), "engine started") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	cfg := &Config{
		FilePath:   logPath,
		MaxSize:    1,
		MaxBackups: 2,
		Compress:   false,
	}

	rotator, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("failed to create rotator: %v", err)
	}

	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rotator.now = func() time.Time { return day }
	rotator.opened = day

	line := []byte("test log line\n")
	if _, err := rotator.Write(line); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	for i := 1; i <= 3; i++ {
		day = day.Add(24 * time.Hour)
		if _, err := rotator.Write(line); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
	}

	if err := rotator.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	files, err := rotator.LogFiles()
	if err != nil {
		t.Fatalf("failed to list log files: %v", err)
	}
	if len(files) != 1+cfg.MaxBackups {
		t.Errorf("expected %d log files, got %v", 1+cfg.MaxBackups, files)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if string(data) != string(line) {
		t.Errorf("current log = %q", data)
	}
}

func TestCrashHandler(t *testing.T) {
	var seen []CrashReport
	handler := NewCrashHandler(&CrashHandlerConfig{
		CrashDir:  t.TempDir(),
		Version:   "1.0.0",
		Component: "test",
		OnCrash:   func(r CrashReport) { seen = append(seen, r) },
	})

	handler.HandlePanic("caret out of range", map[string]string{"command": "send_key"})

	reports, err := handler.CrashReports()
	if err != nil {
		t.Fatalf("failed to get crash reports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].PanicValue != "caret out of range" || reports[0].Version != "1.0.0" {
		t.Errorf("unexpected report %+v", reports[0])
	}
	if reports[0].Context["command"] != "send_key" {
		t.Errorf("context = %v", reports[0].Context)
	}
	if len(seen) != 1 {
		t.Errorf("OnCrash called %d times", len(seen))
	}

	if err := handler.ClearCrashReports(); err != nil {
		t.Errorf("ClearCrashReports failed: %v", err)
	}
	if reports, _ := handler.CrashReports(); len(reports) != 0 {
		t.Error("crash reports were not cleared")
	}
}

func TestCrashHandlerRecoverAndGuard(t *testing.T) {
	handler := NewCrashHandler(&CrashHandlerConfig{CrashDir: t.TempDir(), Component: "test"})

	if !handler.Recover(func() { panic("boom") }) {
		t.Error("Recover did not report the panic")
	}
	if handler.Recover(func() {}) {
		t.Error("Recover reported a panic for a clean call")
	}

	func() {
		defer func() {
			if r := recover(); r != "again" {
				t.Errorf("Guard must re-panic, got %v", r)
			}
		}()
		defer handler.Guard(nil)
		panic("again")
	}()

	reports, _ := handler.CrashReports()
	if len(reports) != 2 {
		t.Errorf("expected 2 reports, got %d", len(reports))
	}
}
