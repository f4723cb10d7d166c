package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.LeaseSeconds < 1 {
		return errors.New("scheduler.lease_seconds must be at least 1")
	}
	if c.Scheduler.AllocateWaitSeconds < 1 {
		return errors.New("scheduler.allocate_wait_seconds must be at least 1")
	}
	if c.Scheduler.MaxTaskAttempts < 1 {
		return errors.New("scheduler.max_task_attempts must be at least 1")
	}
	if c.Scheduler.AllocateWaitSeconds >= c.Scheduler.LeaseSeconds {
		return errors.New("scheduler.allocate_wait_seconds must be shorter than scheduler.lease_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
