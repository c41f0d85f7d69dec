package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks value ranges only. Whether database_url is needed depends on
// the command, so commands check it through RequireDatabase.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateLog(&cfg.Log)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateQueue(&cfg.Queue)...)
	errs = append(errs, validateReconcile(&cfg.Reconcile)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func RequireDatabase(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return ValidationErrors{{Field: "database_url", Message: "is required for this command"}}
	}
	return nil
}

func validateLog(cfg *LogConfig) ValidationErrors {
	var errs ValidationErrors

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: "must be one of: trace, debug, info, warn, error",
		})
	}

	if cfg.Format != "json" && cfg.Format != "console" {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: "must be 'json' or 'console'",
		})
	}

	return errs
}

func validateEngine(cfg *EngineConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.MaxScanDays < 1 {
		errs = append(errs, ValidationError{Field: "engine.max_scan_days", Message: "must be at least 1"})
	}

	if cfg.ConvergenceIterations < 1 {
		errs = append(errs, ValidationError{Field: "engine.convergence_iterations", Message: "must be at least 1"})
	}

	return errs
}

func validateQueue(cfg *QueueConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.TaskIdentifier == "" {
		errs = append(errs, ValidationError{Field: "queue.task_identifier", Message: "must not be empty"})
	}

	if cfg.MaxAttempts < 0 {
		errs = append(errs, ValidationError{Field: "queue.max_attempts", Message: "must not be negative"})
	}

	return errs
}

func validateReconcile(cfg *ReconcileConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.Concurrency < 1 {
		errs = append(errs, ValidationError{Field: "reconcile.concurrency", Message: "must be at least 1"})
	}

	if cfg.RatePerSecond < 0 {
		errs = append(errs, ValidationError{Field: "reconcile.rate_per_second", Message: "must not be negative"})
	}

	return errs
}
