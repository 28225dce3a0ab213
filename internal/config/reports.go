package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	EnvReportsSchedule = "ARBITER_REPORTS_SCHEDULE"
	EnvReportsPrefix   = "ARBITER_REPORTS_PREFIX"
	EnvReportsTimezone = "ARBITER_REPORTS_TIMEZONE"
	EnvReportsTimeout  = "ARBITER_REPORTS_TIMEOUT"
)

// ReportsConfig schedules accuracy report exports. An empty schedule
// disables scheduled exports.
type ReportsConfig struct {
	Schedule string `toml:"schedule"`
	Prefix   string `toml:"prefix"`
	Timezone string `toml:"timezone"`
	Timeout  string `toml:"timeout"`
}

// Location loads the configured timezone, falling back to UTC.
func (c *ReportsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TimeoutDuration parses Timeout into a time.Duration.
func (c *ReportsConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ReportsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ReportsConfig) Merge(overlay *ReportsConfig) {
	if overlay.Schedule != "" {
		c.Schedule = overlay.Schedule
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *ReportsConfig) loadDefaults() {
	if c.Prefix == "" {
		c.Prefix = "reports/accuracy"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
}

func (c *ReportsConfig) loadEnv() {
	if v := os.Getenv(EnvReportsSchedule); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv(EnvReportsPrefix); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv(EnvReportsTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvReportsTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *ReportsConfig) validate() error {
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
