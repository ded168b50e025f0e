// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Moodle     MoodleConfig     `koanf:"moodle"`
	Canvas     CanvasConfig     `koanf:"canvas"`
	Sakai      SakaiConfig      `koanf:"sakai"`
	Chamilo    ChamiloConfig    `koanf:"chamilo"`
	Sync       SyncConfig       `koanf:"sync"`
	Resilience ResilienceConfig `koanf:"resilience"`
	HTTPClient HTTPClientConfig `koanf:"http_client"`
	Database   DatabaseConfig   `koanf:"database"`
	Tokens     TokenStoreConfig `koanf:"tokens"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// MoodleConfig holds Moodle web service settings.
type MoodleConfig struct {
	URL       string `koanf:"url"`
	Token     string `koanf:"token"`
	TimeoutMS int    `koanf:"timeout_ms"`
	Debug     bool   `koanf:"debug"` // Logs request start/finish with durations

	// UnavailableCacheTTL is how long a "function not available" answer is
	// remembered before the primary notification function is tried again.
	UnavailableCacheTTL time.Duration `koanf:"unavailable_cache_ttl"`
}

// Configured reports whether Moodle has both a URL and a token.
func (m MoodleConfig) Configured() bool {
	return m.URL != "" && m.Token != ""
}

// Timeout returns the per-call timeout.
func (m MoodleConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMS) * time.Millisecond
}

// CanvasConfig holds Canvas REST API settings.
type CanvasConfig struct {
	URL       string `koanf:"url"`
	Token     string `koanf:"token"`
	AccountID string `koanf:"account_id"` // Account used when creating courses
}

// Configured reports whether Canvas has both a URL and a token.
func (c CanvasConfig) Configured() bool {
	return c.URL != "" && c.Token != ""
}

// SakaiConfig holds Sakai entity broker settings.
type SakaiConfig struct {
	URL        string        `koanf:"url"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// Configured reports whether Sakai has a URL and a full credential pair.
func (s SakaiConfig) Configured() bool {
	return s.URL != "" && s.Username != "" && s.Password != ""
}

// ChamiloConfig holds Chamilo REST v2 settings.
type ChamiloConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	APIKey   string `koanf:"api_key"`
}

// Configured reports whether Chamilo has a URL, a username and an API key.
func (c ChamiloConfig) Configured() bool {
	return c.URL != "" && c.Username != "" && c.APIKey != ""
}

// SyncConfig holds background course sync settings.
type SyncConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	ErrorBackoff time.Duration `koanf:"error_backoff"` // Wait after a failed loop iteration
	StopTimeout  time.Duration `koanf:"stop_timeout"`  // Bound on joining the loop during Stop
}

// MinSyncInterval is the smallest accepted sync interval.
const MinSyncInterval = 60 * time.Second

// ResilienceConfig holds the retry and circuit breaker policy wrapped around course sync.
type ResilienceConfig struct {
	RetryMaxAttempts int           `koanf:"retry_max_attempts"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	RetryMaxDelay    time.Duration `koanf:"retry_max_delay"`
	RetryExponential bool          `koanf:"retry_exponential"`
	BreakerThreshold int           `koanf:"breaker_threshold"`
	BreakerRecovery  time.Duration `koanf:"breaker_recovery"`
}

// HTTPClientConfig holds settings for the pooled robust HTTP client used by the
// Canvas, Sakai and Chamilo connectors.
type HTTPClientConfig struct {
	MaxRetries          int           `koanf:"max_retries"`
	BackoffFactor       time.Duration `koanf:"backoff_factor"`
	Timeout             time.Duration `koanf:"timeout"`
	UploadTimeout       time.Duration `koanf:"upload_timeout"`
	TestTimeout         time.Duration `koanf:"test_timeout"`
	RateLimit           float64       `koanf:"rate_limit"` // Requests per second per client, 0 disables
	RateBurst           int           `koanf:"rate_burst"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host"`
	UserAgent           string        `koanf:"user_agent"`
}

// DatabaseConfig holds local course store settings.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // duckdb or sqlite
	Path   string `koanf:"path"`
}

// TokenStoreConfig selects where LMS session tokens are persisted.
type TokenStoreConfig struct {
	Backend       string `koanf:"backend"` // memory, badger or redis
	Path          string `koanf:"path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`
}

// ServerConfig holds the operations HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Caller     bool   `koanf:"caller"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// Load reads configuration from defaults, an optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
