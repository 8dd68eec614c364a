// Package config provides application configuration management using environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync daemon.
type Config struct {
	Remote  RemoteConfig
	Cache   CacheConfig
	Sync    SyncConfig
	Logging LoggingConfig
}

// RemoteConfig holds connection settings for the remote document-store API.
type RemoteConfig struct {
	BaseURL   string
	APIToken  string
	Timeout   time.Duration
	HealthURL string
}

// CacheConfig holds settings for the on-device SQLite cache.
type CacheConfig struct {
	Path          string
	RetentionDays int
}

// SyncConfig holds settings for background synchronization.
type SyncConfig struct {
	UserID        string
	WarmSchedule  string
	SweepSchedule string
	ProbeInterval time.Duration
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
// It optionally loads from a .env file if it exists.
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	timeoutMS, _ := strconv.Atoi(getEnv("REMOTE_TIMEOUT_MS", "3000"))
	cfg.Remote = RemoteConfig{
		BaseURL:   getEnv("REMOTE_BASE_URL", ""),
		APIToken:  getEnv("REMOTE_API_TOKEN", ""),
		Timeout:   time.Duration(timeoutMS) * time.Millisecond,
		HealthURL: getEnv("REMOTE_HEALTH_URL", ""),
	}
	if cfg.Remote.HealthURL == "" && cfg.Remote.BaseURL != "" {
		cfg.Remote.HealthURL = cfg.Remote.BaseURL + "/healthz"
	}

	retentionDays, _ := strconv.Atoi(getEnv("CACHE_RETENTION_DAYS", "30"))
	cfg.Cache = CacheConfig{
		Path:          getEnv("CACHE_DB_PATH", "meetsync.db"),
		RetentionDays: retentionDays,
	}

	probeSeconds, _ := strconv.Atoi(getEnv("CONNECTIVITY_PROBE_SECONDS", "15"))
	cfg.Sync = SyncConfig{
		UserID:        getEnv("SYNC_USER_ID", ""),
		WarmSchedule:  getEnv("SYNC_WARM_SCHEDULE", "@every 10m"),
		SweepSchedule: getEnv("SYNC_SWEEP_SCHEDULE", "@every 1h"),
		ProbeInterval: time.Duration(probeSeconds) * time.Second,
	}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL is required")
	}
	if c.Remote.APIToken == "" {
		return fmt.Errorf("REMOTE_API_TOKEN is required")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_MS must be positive")
	}

	if c.Cache.Path == "" {
		return fmt.Errorf("CACHE_DB_PATH is required")
	}
	if c.Cache.RetentionDays <= 0 {
		return fmt.Errorf("CACHE_RETENTION_DAYS must be positive")
	}

	if c.Sync.UserID == "" {
		return fmt.Errorf("SYNC_USER_ID is required")
	}
	if c.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("CONNECTIVITY_PROBE_SECONDS must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
