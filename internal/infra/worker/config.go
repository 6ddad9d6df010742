package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"politikk-moter/internal/pkg/config"
	pkgconfig "politikk-moter/pkg/config"
)

// WorkerConfig holds the scheduler settings of the worker daemon.
// Invalid environment values fall back to the defaults with a warning.
type WorkerConfig struct {
	// CronSchedule is a five-field cron expression. Default: "0 7 * * *"
	CronSchedule string

	// Timezone the schedule is evaluated in. Default: "Europe/Oslo"
	Timezone string

	// RunTimeout bounds one scheduled run of all pipelines. Default: 15m
	RunTimeout time.Duration

	// HealthPort serves /health, /ready and /metrics. Default: 9091
	HealthPort int

	// HorizonDays is the report window, 1-60. Default: 10
	HorizonDays int

	// RunOnStart runs all pipelines once at boot. Default: false
	RunOnStart bool

	// Pipelines limits scheduled runs to these keys. Empty means every
	// enabled pipeline.
	Pipelines []string
}

// DefaultConfig returns the worker defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 7 * * *",
		Timezone:     "Europe/Oslo",
		RunTimeout:   15 * time.Minute,
		HealthPort:   9091,
		HorizonDays:  10,
	}
}

// Validate reports every invalid field.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := validateRunTimeout(c.RunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := validateHealthPort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := validateHorizon(c.HorizonDays); err != nil {
		errs = append(errs, fmt.Errorf("horizon days: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the schedule's zone, or UTC when Timezone is invalid.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateRunTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Minute, 2*time.Hour)
}

func validateHealthPort(v int) error {
	return config.ValidatePort(v)
}

func validateHorizon(v int) error {
	return config.ValidateIntRange(v, 1, 60)
}

// LoadConfigFromEnv reads WorkerConfig from the environment. It never fails on
// bad values: each one is replaced by its default, logged and counted.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	note := func(field string, applied bool, warning string) {
		if !applied {
			return
		}
		fallbackApplied = true
		metrics.RecordFallback(field)
		logger.Warn("configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}

	schedule := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = schedule.Value
	note("cron_schedule", schedule.FallbackApplied, schedule.Warning)

	tz := config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = tz.Value
	note("timezone", tz.FallbackApplied, tz.Warning)

	timeout := config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, validateRunTimeout)
	cfg.RunTimeout = timeout.Value
	note("run_timeout", timeout.FallbackApplied, timeout.Warning)

	port := config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, validateHealthPort)
	cfg.HealthPort = port.Value
	note("health_port", port.FallbackApplied, port.Warning)

	horizon := config.LoadEnvInt("HORIZON_DAYS", cfg.HorizonDays, validateHorizon)
	cfg.HorizonDays = horizon.Value
	note("horizon_days", horizon.FallbackApplied, horizon.Warning)

	onStart := config.LoadEnvBool("RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = onStart.Value
	note("run_on_start", onStart.FallbackApplied, onStart.Warning)

	cfg.Pipelines = pkgconfig.GetEnvStringList("WORKER_PIPELINES", nil)

	metrics.SetFallbackActive(fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
