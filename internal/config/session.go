package config

import (
	"fmt"
	"os"
)

// EnvSessionPath overrides the session store database path.
const EnvSessionPath = "SESSION_DB_PATH"

// SessionConfig contains conversation session store configuration.
type SessionConfig struct {
	Path string `toml:"path"`
}

// Finalize applies defaults, loads environment overrides, and validates the session configuration.
func (c *SessionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *SessionConfig) Merge(overlay *SessionConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}

func (c *SessionConfig) loadDefaults() {
	if c.Path == "" {
		c.Path = ".data/sessions.db"
	}
}

func (c *SessionConfig) loadEnv() {
	if v := os.Getenv(EnvSessionPath); v != "" {
		c.Path = v
	}
}

func (c *SessionConfig) validate() error {
	if c.Path == "" {
		return fmt.Errorf("path required")
	}
	return nil
}
