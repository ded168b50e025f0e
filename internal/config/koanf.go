// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lmsbridge/config.yaml",
	"/etc/lmsbridge/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Moodle: MoodleConfig{
			URL:                 "",
			Token:               "",
			TimeoutMS:           15000,
			Debug:               false,
			UnavailableCacheTTL: 10 * time.Minute,
		},
		Canvas: CanvasConfig{
			AccountID: "1",
		},
		Sakai: SakaiConfig{
			SessionTTL: 30 * time.Minute,
		},
		Chamilo: ChamiloConfig{
			Username: "admin",
		},
		Sync: SyncConfig{
			Enabled:      true,
			Interval:     5 * time.Minute,
			ErrorBackoff: 60 * time.Second,
			StopTimeout:  10 * time.Second,
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts: 3,
			RetryBackoff:     2 * time.Second,
			RetryMaxDelay:    300 * time.Second,
			RetryExponential: true,
			BreakerThreshold: 5,
			BreakerRecovery:  300 * time.Second,
		},
		HTTPClient: HTTPClientConfig{
			MaxRetries:          3,
			BackoffFactor:       300 * time.Millisecond,
			Timeout:             30 * time.Second,
			UploadTimeout:       60 * time.Second,
			TestTimeout:         10 * time.Second,
			RateLimit:           0, // Unlimited
			RateBurst:           10,
			MaxIdleConnsPerHost: 10,
			UserAgent:           "LMS-Backend/1.0",
		},
		Database: DatabaseConfig{
			Driver: "duckdb",
			Path:   "/data/lmsbridge.duckdb",
		},
		Tokens: TokenStoreConfig{
			Backend:   "memory",
			Path:      "/data/tokens",
			RedisAddr: "localhost:6379",
			KeyPrefix: "lmsbridge:token:",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Caller:     false,
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 7,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// MOODLE_URL -> moodle.url, SYNC_INTERVAL -> sync.interval
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Moodle
	"moodle_url":                   "moodle.url",
	"moodle_token":                 "moodle.token",
	"moodle_timeout_ms":            "moodle.timeout_ms",
	"moodle_debug":                 "moodle.debug",
	"moodle_unavailable_cache_ttl": "moodle.unavailable_cache_ttl",

	// Canvas
	"canvas_url":        "canvas.url",
	"canvas_token":      "canvas.token",
	"canvas_account_id": "canvas.account_id",

	// Sakai
	"sakai_url":         "sakai.url",
	"sakai_username":    "sakai.username",
	"sakai_password":    "sakai.password",
	"sakai_session_ttl": "sakai.session_ttl",

	// Chamilo
	"chamilo_url":      "chamilo.url",
	"chamilo_username": "chamilo.username",
	"chamilo_api_key":  "chamilo.api_key",

	// Sync scheduler
	"sync_enabled":       "sync.enabled",
	"sync_interval":      "sync.interval",
	"sync_error_backoff": "sync.error_backoff",
	"sync_stop_timeout":  "sync.stop_timeout",

	// Retry and circuit breaker
	"retry_max_attempts":        "resilience.retry_max_attempts",
	"retry_backoff":             "resilience.retry_backoff",
	"retry_max_delay":           "resilience.retry_max_delay",
	"retry_exponential":         "resilience.retry_exponential",
	"circuit_breaker_threshold": "resilience.breaker_threshold",
	"circuit_breaker_recovery":  "resilience.breaker_recovery",

	// Outbound HTTP client
	"http_client_max_retries":    "http_client.max_retries",
	"http_client_backoff_factor": "http_client.backoff_factor",
	"http_client_timeout":        "http_client.timeout",
	"http_client_upload_timeout": "http_client.upload_timeout",
	"http_client_test_timeout":   "http_client.test_timeout",
	"http_client_rate_limit":     "http_client.rate_limit",
	"http_client_rate_burst":     "http_client.rate_burst",
	"http_client_max_idle_conns": "http_client.max_idle_conns_per_host",
	"http_client_user_agent":     "http_client.user_agent",

	// Database
	"db_driver": "database.driver",
	"db_path":   "database.path",

	// Token store
	"token_store":        "tokens.backend",
	"token_store_path":   "tokens.path",
	"redis_addr":         "tokens.redis_addr",
	"redis_password":     "tokens.redis_password",
	"redis_db":           "tokens.redis_db",
	"token_store_prefix": "tokens.key_prefix",

	// Server
	"http_host":         "server.host",
	"http_port":         "server.port",
	"http_timeout":      "server.timeout",
	"rate_limit_reqs":   "server.rate_limit_reqs",
	"rate_limit_window": "server.rate_limit_window",

	// Logging
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_file":         "logging.file",
	"log_max_size_mb":  "logging.max_size_mb",
	"log_max_backups":  "logging.max_backups",
	"log_max_age_days": "logging.max_age_days",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" so unrelated environment does not leak into config.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
