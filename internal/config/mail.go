package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// EnvMailEnabled toggles the send-mail tool.
	EnvMailEnabled = "MAIL_ENABLED"

	// EnvMailHost overrides the SMTP host.
	EnvMailHost = "MAIL_SMTP_HOST"

	// EnvMailPort overrides the SMTP port.
	EnvMailPort = "MAIL_SMTP_PORT"

	// EnvMailFrom overrides the sender address.
	EnvMailFrom = "MAIL_FROM"

	// EnvMailUsername overrides the SMTP username.
	EnvMailUsername = "MAIL_USERNAME"

	// EnvMailPassword overrides the SMTP password.
	EnvMailPassword = "MAIL_PASSWORD"
)

// MailConfig contains SMTP configuration for the send-mail tool.
type MailConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	From     string `toml:"from"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Addr returns the host:port SMTP address.
func (c *MailConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Finalize applies defaults, loads environment overrides, and validates the mail configuration.
func (c *MailConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *MailConfig) Merge(overlay *MailConfig) {
	c.Enabled = overlay.Enabled

	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.From != "" {
		c.From = overlay.From
	}
	if overlay.Username != "" {
		c.Username = overlay.Username
	}
	if overlay.Password != "" {
		c.Password = overlay.Password
	}
}

func (c *MailConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "smtp.gmail.com"
	}
	if c.Port == 0 {
		c.Port = 587
	}
}

func (c *MailConfig) loadEnv() {
	if v := os.Getenv(EnvMailEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvMailHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvMailPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvMailFrom); v != "" {
		c.From = v
	}
	if v := os.Getenv(EnvMailUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(EnvMailPassword); v != "" {
		c.Password = v
	}
}

func (c *MailConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.From == "" {
		return fmt.Errorf("from required when mail is enabled")
	}
	if c.Username == "" {
		return fmt.Errorf("username required when mail is enabled")
	}
	return nil
}
