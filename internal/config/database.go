package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// EnvDatabaseURL overrides the Postgres connection string.
	EnvDatabaseURL = "DATABASE_URL"

	// EnvUseInMemory selects the volatile in-process backend when set to "1"
	// or any other truthy value.
	EnvUseInMemory = "USE_IN_MEMORY"

	// EnvDatabaseMinConns overrides the minimum pool size.
	EnvDatabaseMinConns = "DATABASE_MIN_CONNS"

	// EnvDatabaseMaxConns overrides the maximum pool size.
	EnvDatabaseMaxConns = "DATABASE_MAX_CONNS"
)

// DatabaseConfig contains record store configuration. URL is required unless
// the in-memory backend is selected; that mismatch is a startup-fatal
// configuration error.
type DatabaseConfig struct {
	URL            string `toml:"url"`
	UseMemory      bool   `toml:"use_memory"`
	MinConns       int    `toml:"min_conns"`
	MaxConns       int    `toml:"max_conns"`
	ConnTimeout    string `toml:"conn_timeout"`
	RetryBaseDelay string `toml:"retry_base_delay"`
}

// ConnTimeoutDuration parses and returns the connection timeout as a time.Duration.
func (c *DatabaseConfig) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// RetryBaseDelayDuration parses and returns the pool creation retry base delay.
func (c *DatabaseConfig) RetryBaseDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBaseDelay)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the database configuration.
func (c *DatabaseConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *DatabaseConfig) Merge(overlay *DatabaseConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.UseMemory {
		c.UseMemory = true
	}
	if overlay.MinConns != 0 {
		c.MinConns = overlay.MinConns
	}
	if overlay.MaxConns != 0 {
		c.MaxConns = overlay.MaxConns
	}
	if overlay.ConnTimeout != "" {
		c.ConnTimeout = overlay.ConnTimeout
	}
	if overlay.RetryBaseDelay != "" {
		c.RetryBaseDelay = overlay.RetryBaseDelay
	}
}

func (c *DatabaseConfig) loadDefaults() {
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
	if c.RetryBaseDelay == "" {
		c.RetryBaseDelay = "1s"
	}
}

func (c *DatabaseConfig) loadEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvUseInMemory); v != "" {
		if memory, err := strconv.ParseBool(v); err == nil {
			c.UseMemory = memory
		} else {
			c.UseMemory = v == "1"
		}
	}
	if v := os.Getenv(EnvDatabaseMinConns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinConns = n
		}
	}
	if v := os.Getenv(EnvDatabaseMaxConns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConns = n
		}
	}
}

func (c *DatabaseConfig) validate() error {
	if !c.UseMemory && c.URL == "" {
		return fmt.Errorf("url required when use_memory is disabled (set %s or %s=1)", EnvDatabaseURL, EnvUseInMemory)
	}
	if c.MinConns < 0 {
		return fmt.Errorf("min_conns cannot be negative")
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max_conns must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min_conns cannot exceed max_conns")
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid retry_base_delay: %w", err)
	}
	return nil
}
