package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// EnvChatModel overrides the generation model name.
	EnvChatModel = "CHAT_MODEL"

	// EnvChatMaxTurns overrides the tool-loop turn limit per chat request.
	EnvChatMaxTurns = "CHAT_MAX_TURNS"
)

// ChatConfig contains generation runtime configuration for chat turns.
type ChatConfig struct {
	Model    string `toml:"model"`
	MaxTurns int    `toml:"max_turns"`
}

// Finalize applies defaults, loads environment overrides, and validates the chat configuration.
func (c *ChatConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ChatConfig) Merge(overlay *ChatConfig) {
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.MaxTurns != 0 {
		c.MaxTurns = overlay.MaxTurns
	}
}

func (c *ChatConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 10
	}
}

func (c *ChatConfig) loadEnv() {
	if v := os.Getenv(EnvChatModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvChatMaxTurns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTurns = n
		}
	}
}

func (c *ChatConfig) validate() error {
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be positive")
	}
	return nil
}
