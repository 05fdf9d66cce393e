package logger

import (
	"os"
	"path/filepath"
	"testing"

	"cryptoboard/config"
)

// go test -v --run ^TestNewInvalidLevel$
func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level, got nil")
	}
}

// go test -v --run ^TestNewWritesRotatedFile$
func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, err := New(config.LogConfig{
		Level:       "info",
		Format:      "json",
		OutputFile:  path,
		Environment: "prod",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain output")
	}
}
