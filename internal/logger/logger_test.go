package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwebster45206/tale-engine/internal/config"
)

func TestSetupFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "tale.log")
	cfg.Environment = "production"

	log, closer, err := SetupFile(cfg)
	if err != nil {
		t.Fatalf("SetupFile() error = %v", err)
	}
	log.Info("Turn complete", "clock", "Day 1, 08:05")
	log.Debug("hidden at info level")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"msg":"Turn complete"`) || !strings.Contains(got, `"clock":"Day 1, 08:05"`) {
		t.Errorf("log file missing JSON entry: %s", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("debug entry written at info level: %s", got)
	}
}

func TestSetupFile_NoFile(t *testing.T) {
	log, closer, err := SetupFile(config.Default())
	if err != nil {
		t.Fatalf("SetupFile() error = %v", err)
	}
	log.Info("discarded")
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestSetupFile_BadPath(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "tale.log")
	if _, _, err := SetupFile(cfg); err == nil {
		t.Error("expected error for unwritable log path")
	}
}
