package config

import "github.com/go-tick/remind"

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: EngineConfig{
			MaxScanDays:           remind.DefaultResolver.MaxScanDays,
			ConvergenceIterations: remind.DefaultResolver.ConvergenceIterations,
		},
		Queue: QueueConfig{
			TaskIdentifier: remind.DefaultTaskIdentifier,
		},
		Reconcile: ReconcileConfig{
			Concurrency:   4,
			RatePerSecond: 50,
		},
	}
}
