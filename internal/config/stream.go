package config

import (
	"fmt"
	"os"
	"time"
)

// EnvStreamPollInterval overrides the collection diff stream poll interval.
const EnvStreamPollInterval = "STREAM_POLL_INTERVAL"

// StreamConfig contains collection diff streaming configuration. The poll
// interval bounds worst-case client-visible staleness.
type StreamConfig struct {
	PollInterval string `toml:"poll_interval"`
}

// PollIntervalDuration parses and returns the poll interval as a time.Duration.
func (c *StreamConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the stream configuration.
func (c *StreamConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *StreamConfig) Merge(overlay *StreamConfig) {
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
}

func (c *StreamConfig) loadDefaults() {
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
}

func (c *StreamConfig) loadEnv() {
	if v := os.Getenv(EnvStreamPollInterval); v != "" {
		c.PollInterval = v
	}
}

func (c *StreamConfig) validate() error {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
