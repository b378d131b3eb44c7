package config

import (
	"fmt"
	"os"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	// ReposPath is the YAML file listing the repositories to ingest, in
	// ingestion order.
	ReposPath string

	Ingest        IngestConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

// IngestConfig configures the ingestion run
type IngestConfig struct {
	// CacheRoot is the root under which the package manager cache lives,
	// e.g. "/" for the running host.
	CacheRoot string

	// OutDir receives the per-repo and merged JSON dumps.
	OutDir string

	// Makecache refreshes the package manager cache before loading.
	Makecache bool

	// MakecacheTimeout bounds a single makecache invocation.
	MakecacheTimeout time.Duration

	// SkipCorrupt drops undecodable advisories instead of aborting the run.
	SkipCorrupt bool

	// PolicyExpression is the CEL admission policy; empty admits everything.
	PolicyExpression string
}

// StoreConfig configures the relational store
type StoreConfig struct {
	SQLitePath string
}

// ObservabilityConfig configures logging and metrics
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
	MetricsPort    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ReposPath: getEnv("ERRATADB_REPOS", "repos.yml"),
		Ingest: IngestConfig{
			CacheRoot:        getEnv("CACHE_ROOT", "/"),
			OutDir:           getEnv("OUT_DIR", "out"),
			Makecache:        getEnvBool("MAKECACHE", false),
			MakecacheTimeout: getEnvDuration("MAKECACHE_TIMEOUT", 10*time.Minute),
			SkipCorrupt:      getEnvBool("SKIP_CORRUPT", false),
			PolicyExpression: getEnv("POLICY_EXPRESSION", ""),
		},
		Store: StoreConfig{
			SQLitePath: getEnv("SQLITE_PATH", "errata.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			MetricsEnabled: getEnvBool("METRICS_ENABLED", false),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ReposPath == "" {
		return fmt.Errorf("repos file path is required")
	}

	if _, err := os.Stat(c.ReposPath); os.IsNotExist(err) {
		return fmt.Errorf("repos file not found: %s", c.ReposPath)
	}

	if c.Ingest.CacheRoot == "" {
		return fmt.Errorf("cache root is required")
	}

	if c.Ingest.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}

	if c.Store.SQLitePath == "" {
		return fmt.Errorf("sqlite path is required")
	}

	if c.Observability.MetricsEnabled && (c.Observability.MetricsPort <= 0 || c.Observability.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Observability.MetricsPort)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
