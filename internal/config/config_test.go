package config_test

import (
	"os"
	"testing"

	"github.com/agenthive/agenthive/internal/config"
)

func TestDatabaseConfig_Finalize_Defaults(t *testing.T) {
	cfg := config.DatabaseConfig{UseMemory: true}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.MinConns != 2 {
		t.Errorf("MinConns = %d, want 2", cfg.MinConns)
	}
	if cfg.MaxConns != 10 {
		t.Errorf("MaxConns = %d, want 10", cfg.MaxConns)
	}
	if cfg.ConnTimeout != "5s" {
		t.Errorf("ConnTimeout = %q, want 5s", cfg.ConnTimeout)
	}
	if cfg.RetryBaseDelay != "1s" {
		t.Errorf("RetryBaseDelay = %q, want 1s", cfg.RetryBaseDelay)
	}
}

func TestDatabaseConfig_Finalize_MissingURLIsFatal(t *testing.T) {
	cfg := config.DatabaseConfig{}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("Finalize() without url or use_memory succeeded, want error")
	}
}

func TestDatabaseConfig_Finalize_EnvOverrides(t *testing.T) {
	os.Setenv(config.EnvDatabaseURL, "postgres://env-host/db")
	os.Setenv(config.EnvUseInMemory, "0")
	defer func() {
		os.Unsetenv(config.EnvDatabaseURL)
		os.Unsetenv(config.EnvUseInMemory)
	}()

	cfg := config.DatabaseConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.URL != "postgres://env-host/db" {
		t.Errorf("URL = %q, want env override", cfg.URL)
	}
	if cfg.UseMemory {
		t.Error("UseMemory = true, want false from env")
	}
}

func TestDatabaseConfig_Finalize_UseInMemoryFlag(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE"} {
		os.Setenv(config.EnvUseInMemory, v)

		cfg := config.DatabaseConfig{}
		if err := cfg.Finalize(); err != nil {
			t.Errorf("Finalize() with %s=%q failed: %v", config.EnvUseInMemory, v, err)
		}
		if !cfg.UseMemory {
			t.Errorf("UseMemory = false with %s=%q", config.EnvUseInMemory, v)
		}

		os.Unsetenv(config.EnvUseInMemory)
	}
}

func TestDatabaseConfig_Finalize_PoolBoundsValidated(t *testing.T) {
	cfg := config.DatabaseConfig{UseMemory: true, MinConns: 20, MaxConns: 5}
	if err := cfg.Finalize(); err == nil {
		t.Error("Finalize() with min > max succeeded, want error")
	}
}

func TestConfig_Finalize_SectionsChained(t *testing.T) {
	os.Setenv(config.EnvUseInMemory, "1")
	defer os.Unsetenv(config.EnvUseInMemory)

	cfg := &config.Config{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.ShutdownTimeout != "30s" {
		t.Errorf("ShutdownTimeout = %q, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.Chat.Model == "" {
		t.Error("Chat.Model not defaulted")
	}
	if cfg.Chat.MaxTurns != 10 {
		t.Errorf("Chat.MaxTurns = %d, want 10", cfg.Chat.MaxTurns)
	}
	if cfg.Stream.PollInterval != "1s" {
		t.Errorf("Stream.PollInterval = %q, want 1s", cfg.Stream.PollInterval)
	}
	if cfg.Pagination.DefaultLimit != 100 {
		t.Errorf("Pagination.DefaultLimit = %d, want 100", cfg.Pagination.DefaultLimit)
	}
}

func TestConfig_Merge_OverlayWins(t *testing.T) {
	base := &config.Config{ShutdownTimeout: "30s"}
	base.Database.URL = "postgres://base/db"
	base.Chat.Model = "gpt-4o-mini"

	overlay := &config.Config{ShutdownTimeout: "5s"}
	overlay.Database.URL = "postgres://overlay/db"

	base.Merge(overlay)

	if base.ShutdownTimeout != "5s" {
		t.Errorf("ShutdownTimeout = %q, want overlay 5s", base.ShutdownTimeout)
	}
	if base.Database.URL != "postgres://overlay/db" {
		t.Errorf("Database.URL = %q, want overlay value", base.Database.URL)
	}
	if base.Chat.Model != "gpt-4o-mini" {
		t.Errorf("Chat.Model = %q, zero overlay overwrote base", base.Chat.Model)
	}
}
