// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Moodle.TimeoutMS != 15000 {
		t.Errorf("Moodle.TimeoutMS = %d, want 15000", cfg.Moodle.TimeoutMS)
	}
	if cfg.Moodle.Timeout() != 15*time.Second {
		t.Errorf("Moodle.Timeout() = %v, want 15s", cfg.Moodle.Timeout())
	}
	if cfg.Sync.Interval != 300*time.Second {
		t.Errorf("Sync.Interval = %v, want 5m", cfg.Sync.Interval)
	}
	if cfg.Sync.ErrorBackoff != 60*time.Second {
		t.Errorf("Sync.ErrorBackoff = %v, want 60s", cfg.Sync.ErrorBackoff)
	}
	if cfg.Sync.StopTimeout != 10*time.Second {
		t.Errorf("Sync.StopTimeout = %v, want 10s", cfg.Sync.StopTimeout)
	}
	if cfg.Resilience.RetryMaxAttempts != 3 || cfg.Resilience.RetryBackoff != 2*time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Resilience)
	}
	if cfg.Resilience.BreakerThreshold != 5 || cfg.Resilience.BreakerRecovery != 300*time.Second {
		t.Errorf("unexpected breaker defaults: %+v", cfg.Resilience)
	}
	if cfg.HTTPClient.MaxRetries != 3 || cfg.HTTPClient.BackoffFactor != 300*time.Millisecond {
		t.Errorf("unexpected HTTP client retry defaults: %+v", cfg.HTTPClient)
	}
	if cfg.HTTPClient.Timeout != 30*time.Second {
		t.Errorf("HTTPClient.Timeout = %v, want 30s", cfg.HTTPClient.Timeout)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Tokens.Backend != "memory" {
		t.Errorf("Tokens.Backend = %q, want memory", cfg.Tokens.Backend)
	}
	if len(cfg.ConfiguredPlatforms()) != 0 {
		t.Errorf("no platform should be configured by default, got %v", cfg.ConfiguredPlatforms())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"MOODLE_URL", "moodle.url"},
		{"MOODLE_TOKEN", "moodle.token"},
		{"MOODLE_TIMEOUT_MS", "moodle.timeout_ms"},
		{"MOODLE_DEBUG", "moodle.debug"},
		{"CANVAS_TOKEN", "canvas.token"},
		{"SAKAI_PASSWORD", "sakai.password"},
		{"CHAMILO_API_KEY", "chamilo.api_key"},
		{"SYNC_INTERVAL", "sync.interval"},
		{"CIRCUIT_BREAKER_THRESHOLD", "resilience.breaker_threshold"},
		{"TOKEN_STORE", "tokens.backend"},
		{"HTTP_PORT", "server.port"},
		{"LOG_FILE", "logging.file"},
		{"PATH", ""},
		{"UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := envTransformFunc(tt.input); result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	t.Run("no config file exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("moodle: {}"), 0o644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("moodle: {}"), 0o644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)
		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("MOODLE_URL", "https://moodle.example.edu")
	t.Setenv("MOODLE_TOKEN", "moodle-token-123")
	t.Setenv("MOODLE_TIMEOUT_MS", "5000")
	t.Setenv("MOODLE_DEBUG", "true")
	t.Setenv("CANVAS_URL", "https://canvas.example.edu")
	t.Setenv("SAKAI_URL", "https://sakai.example.edu")
	t.Setenv("SAKAI_USERNAME", "admin")
	t.Setenv("SYNC_INTERVAL", "10m")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Moodle.URL != "https://moodle.example.edu" {
		t.Errorf("Moodle.URL = %q", cfg.Moodle.URL)
	}
	if cfg.Moodle.Timeout() != 5*time.Second {
		t.Errorf("Moodle.Timeout() = %v, want 5s", cfg.Moodle.Timeout())
	}
	if !cfg.Moodle.Debug {
		t.Error("Moodle.Debug should be true")
	}
	if cfg.Sync.Interval != 10*time.Minute {
		t.Errorf("Sync.Interval = %v, want 10m", cfg.Sync.Interval)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}

	// Canvas has no token and Sakai no password, so only Moodle is configured
	got := cfg.ConfiguredPlatforms()
	if len(got) != 1 || got[0] != "moodle" {
		t.Errorf("ConfiguredPlatforms() = %v, want [moodle]", got)
	}

	// Defaults survive for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
}

// TestLoadWithKoanfConfigFile tests YAML loading and env override precedence
func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "lmsbridge.yaml")
	content := `
chamilo:
  url: https://chamilo.example.edu
  api_key: file-key
sync:
  interval: 2m
database:
  driver: sqlite
  path: /tmp/lms.db
logging:
  format: console
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("CHAMILO_API_KEY", "env-key")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Chamilo.APIKey != "env-key" {
		t.Errorf("env should override file, Chamilo.APIKey = %q", cfg.Chamilo.APIKey)
	}
	if cfg.Chamilo.Username != "admin" {
		t.Errorf("Chamilo.Username = %q, want admin (default)", cfg.Chamilo.Username)
	}
	if cfg.Sync.Interval != 2*time.Minute {
		t.Errorf("Sync.Interval = %v, want 2m", cfg.Sync.Interval)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if !cfg.Chamilo.Configured() {
		t.Error("Chamilo should be configured")
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"interval below floor", map[string]string{"SYNC_INTERVAL": "30s"}, "SYNC_INTERVAL"},
		{"bad moodle url", map[string]string{"MOODLE_URL": "ftp://moodle"}, "MOODLE_URL"},
		{"moodle url with query", map[string]string{"MOODLE_URL": "https://moodle/?wstoken=x"}, "MOODLE_URL"},
		{"bad driver", map[string]string{"DB_DRIVER": "postgres"}, "DB_DRIVER"},
		{"bad token store", map[string]string{"TOKEN_STORE": "etcd"}, "TOKEN_STORE"},
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "HTTP_PORT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"zero threshold", map[string]string{"CIRCUIT_BREAKER_THRESHOLD": "0"}, "CIRCUIT_BREAKER_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}
