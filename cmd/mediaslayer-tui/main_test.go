package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iconidentify/mediaslayer/cmd/mediaslayer-tui/internal/config"
)

func TestRun_InitFailureFlushesLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "tui.log")
	cfg := config.Load()
	cfg.Theme = "disco"
	cfg.LogFile = logPath

	var stderr bytes.Buffer
	if code := run(cfg, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Error initializing TUI") {
		t.Errorf("stderr = %q", stderr.String())
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "failed to initialize TUI") {
		t.Errorf("log file = %q, want the init failure", data)
	}
}

func TestRun_BadLogFile(t *testing.T) {
	cfg := config.Load()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "tui.log")

	var stderr bytes.Buffer
	if code := run(cfg, &stderr); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Error opening log file") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestNewLogger_Discard(t *testing.T) {
	logger, closeLog, err := newLogger("")
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("dropped")
	closeLog()
}
