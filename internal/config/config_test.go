package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splice/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Paths.APIBind != "127.0.0.1:7419" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Scheduler.MaxTaskAttempts != 3 {
		t.Fatalf("unexpected max attempts: %d", cfg.Scheduler.MaxTaskAttempts)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
api_bind = " 0.0.0.0:9000 "

[scheduler]
lease_seconds = 60
allocate_wait_seconds = 10

[logging]
level = "DEBUG"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api bind not trimmed: %q", cfg.Paths.APIBind)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Scheduler.LeaseSeconds != 60 {
		t.Fatalf("lease seconds not applied: %d", cfg.Scheduler.LeaseSeconds)
	}
}

func TestValidateRejectsWaitLongerThanLease(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.LeaseSeconds = 5
	cfg.Scheduler.AllocateWaitSeconds = 10
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "allocate_wait_seconds") {
		t.Fatalf("expected allocate wait validation error, got %v", err)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected log format validation error")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
