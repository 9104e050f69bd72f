// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and QUESTREC_ env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const maxDBConns = 10_000

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the data store: postgres or memory.
	StoreBackend string `koanf:"store_backend"`

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// DBSchema is the schema holding the assessment tables.
	DBSchema string `koanf:"db_schema"`

	// DBMaxConns caps the pgx pool size.
	DBMaxConns int `koanf:"db_max_conns"`

	// DBMigrate applies the embedded DDL on startup.
	DBMigrate bool `koanf:"db_migrate"`

	// SeedFile is a YAML fixture loaded into the memory backend.
	SeedFile string `koanf:"seed_file"`

	// NeighborCount is the similarity window K (K-1 neighbors are used).
	NeighborCount int `koanf:"neighbor_count"`

	// PoolWarnSize logs a warning when the comparison pool exceeds it.
	PoolWarnSize int `koanf:"pool_warn_size"`

	// RequestTimeoutMS bounds one whole recommendation pipeline run.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// RateLimitRPS and RateLimitBurst bound /recommend; RPS <= 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// BreakerFailureThreshold trips the store breaker after N consecutive failures.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold"`

	// BreakerTimeoutMS is how long the breaker stays open before probing.
	BreakerTimeoutMS int `koanf:"breaker_timeout_ms"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshMS is how often sampled gauges (store size, runtime) refresh.
	MetricsRefreshMS int `koanf:"metrics_refresh_interval_ms"`

	// MetricsLatencyBucketsMS overrides the latency histogram buckets.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		StoreBackend:            BackendPostgres,
		DBSchema:                "public",
		DBMaxConns:              10,
		NeighborCount:           5,
		PoolWarnSize:            5000,
		RequestTimeoutMS:        10_000,
		RateLimitRPS:            50,
		RateLimitBurst:          100,
		BreakerFailureThreshold: 5,
		BreakerTimeoutMS:        30_000,
		MetricsEnabled:          true,
		MetricsNamespace:        "questrec",
		MetricsSubsystem:        "recommender",
		MetricsRefreshMS:        10_000,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.NeighborCount < 1:
		return fmt.Errorf("%w: neighbor_count must be at least 1", ErrInvalidConfig)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval_ms must be positive", ErrInvalidConfig)
	case c.DBMaxConns < 0 || c.DBMaxConns > maxDBConns:
		return fmt.Errorf("%w: db_max_conns must be between 0 and %d", ErrInvalidConfig, maxDBConns)
	}

	switch strings.ToLower(c.StoreBackend) {
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("%w: database_url is required for the postgres backend", ErrInvalidConfig)
		}
		if strings.TrimSpace(c.DBSchema) == "" {
			return fmt.Errorf("%w: db_schema must not be empty", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
