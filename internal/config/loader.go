package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

type LoadOptions struct {
	ConfigFile string
	EnvPrefix  string
	Defaults   *Config
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := opts.Defaults
	if defaults == nil {
		defaults = Default()
	}
	setViperDefaults(v, defaults)

	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "REMIND"
	}
	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("remind")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/remind")
		v.AddConfigPath("/etc/remind")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setViperDefaults registers every key so that AutomaticEnv can see it.
func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("database_url", cfg.DatabaseURL)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	v.SetDefault("engine.max_scan_days", cfg.Engine.MaxScanDays)
	v.SetDefault("engine.convergence_iterations", cfg.Engine.ConvergenceIterations)

	v.SetDefault("queue.task_identifier", cfg.Queue.TaskIdentifier)
	v.SetDefault("queue.queue_name", cfg.Queue.QueueName)
	v.SetDefault("queue.max_attempts", cfg.Queue.MaxAttempts)

	v.SetDefault("reconcile.concurrency", cfg.Reconcile.Concurrency)
	v.SetDefault("reconcile.rate_per_second", cfg.Reconcile.RatePerSecond)
	v.SetDefault("reconcile.timezone_query", cfg.Reconcile.TimezoneQuery)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}
