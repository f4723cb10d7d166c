package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Scheduler contains task scheduling policy knobs.
type Scheduler struct {
	LeaseSeconds           int `toml:"lease_seconds"`
	AllocateWaitSeconds    int `toml:"allocate_wait_seconds"`
	MaxTaskAttempts        int `toml:"max_task_attempts"`
	ReclaimIntervalSeconds int `toml:"reclaim_interval_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration for the splice server and CLI.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Scheduler Scheduler `toml:"scheduler"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the preferred on-disk configuration location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/splice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path and the third reports whether a file was found there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, readErr := os.ReadFile(resolvedPath)
		if readErr != nil {
			return nil, resolvedPath, true, fmt.Errorf("read config: %w", readErr)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, resolvedPath, true, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, resolvedPath, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolvedPath, exists, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the embedded sample configuration to path without
// overwriting an existing file.
func WriteSample(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LeaseDuration returns the task lease lifetime.
func (c *Config) LeaseDuration() time.Duration {
	return time.Duration(c.Scheduler.LeaseSeconds) * time.Second
}

// AllocateWait returns how long an allocate call may block waiting for work.
func (c *Config) AllocateWait() time.Duration {
	return time.Duration(c.Scheduler.AllocateWaitSeconds) * time.Second
}

// ReclaimInterval returns the period of the background lease reclaim sweep.
func (c *Config) ReclaimInterval() time.Duration {
	return time.Duration(c.Scheduler.ReclaimIntervalSeconds) * time.Second
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, statErr := os.Stat(expanded)
		if statErr == nil {
			return expanded, true, nil
		}
		if errors.Is(statErr, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", statErr)
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, statErr := os.Stat(defaultPath); statErr == nil {
		return defaultPath, true, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat config: %w", statErr)
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			return home, nil
		}
		return filepath.Join(home, pathValue[2:]), nil
	}
	return filepath.Abs(pathValue)
}
