package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileOutputAndLevelFilter(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "client.log")

	logger, err := New(Config{
		Level:         LevelInfo,
		Format:        FormatText,
		OutputFile:    logFile,
		EnableConsole: false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("below threshold")
	logger.Info("visible message", "broker", "a:9092")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "below threshold") {
		t.Error("debug message leaked through info level")
	}
	if !strings.Contains(string(content), "visible message") {
		t.Error("info message missing from log file")
	}
}

func TestIndependentLoggers(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "a.log")
	fileB := filepath.Join(dir, "b.log")

	loggerA, err := New(Config{Level: LevelInfo, Format: FormatText, OutputFile: fileA})
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	loggerB, err := New(Config{Level: LevelInfo, Format: FormatText, OutputFile: fileB})
	if err != nil {
		t.Fatalf("New b: %v", err)
	}

	loggerA.Info("message from a")
	loggerB.Info("message from b")
	loggerA.Close()
	loggerB.Close()

	contentA, _ := os.ReadFile(fileA)
	contentB, _ := os.ReadFile(fileB)
	if !strings.Contains(string(contentA), "message from a") || strings.Contains(string(contentA), "message from b") {
		t.Errorf("logger a file has wrong content: %s", contentA)
	}
	if !strings.Contains(string(contentB), "message from b") || strings.Contains(string(contentB), "message from a") {
		t.Errorf("logger b file has wrong content: %s", contentB)
	}
}

func TestContextHelpers(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "ctx.log")

	logger, err := New(Config{Level: LevelDebug, Format: FormatJSON, OutputFile: logFile})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithBroker("b:9092").Info("dial")
	logger.WithPartition("events", 3).Warn("stale leader")
	logger.SessionEvent("connected", "b:9092", map[string]any{"client_id": "c1"})
	logger.RecoveryEvent("b:9092", "recreate", os.ErrClosed)
	logger.Close()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{
		`"broker":"b:9092"`,
		`"topic":"events"`,
		`"partition":3`,
		`"event":"connected"`,
		`"decision":"recreate"`,
	} {
		if !strings.Contains(string(content), want) {
			t.Errorf("log output missing %s", want)
		}
	}
}

func TestFormatFallsBackToText(t *testing.T) {
	logger, err := New(Config{Level: "verbose", Format: "xml", EnableConsole: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Close()

	// Unknown level and format must not fail, they fall back to
	// info and text.
	logger.Info("still works")
}
