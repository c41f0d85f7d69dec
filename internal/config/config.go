// Package config loads process configuration for the remind binary.
package config

// Config is the root configuration structure.
type Config struct {
	DatabaseURL string          `mapstructure:"database_url"`
	Log         LogConfig       `mapstructure:"log"`
	Engine      EngineConfig    `mapstructure:"engine"`
	Queue       QueueConfig     `mapstructure:"queue"`
	Reconcile   ReconcileConfig `mapstructure:"reconcile"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

type LogConfig struct {
	// trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// json or console
	Format string `mapstructure:"format"`
}

// EngineConfig bounds the next-occurrence search.
type EngineConfig struct {
	MaxScanDays           int `mapstructure:"max_scan_days"`
	ConvergenceIterations int `mapstructure:"convergence_iterations"`
}

// QueueConfig controls the graphile-worker jobs written by the Postgres driver.
type QueueConfig struct {
	TaskIdentifier string `mapstructure:"task_identifier"`
	QueueName      string `mapstructure:"queue_name"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
}

type ReconcileConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`

	// Single-column query returning the owner's IANA zone, owner id as $1.
	TimezoneQuery string `mapstructure:"timezone_query"`
}

type MetricsConfig struct {
	// Listen address for /metrics; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}
