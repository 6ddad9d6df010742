package config

import (
	"fmt"
	"log/slog"
	"time"

	"politikk-moter/internal/observability/logging"
	pkgconfig "politikk-moter/pkg/config"
)

// Limits for the report horizon.
const (
	DefaultHorizonDays = 10
	MinHorizonDays     = 1
	MaxHorizonDays     = 60
)

// AppConfig holds the settings shared by the CLI and the worker.
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string

	// HorizonDays is the report window. Default: 10
	HorizonDays int

	// DryRun is set by DRY_RUN or TESTING. Messages are logged and printed
	// instead of delivered.
	DryRun bool

	// RenderServiceURL is the script renderer endpoint. Empty disables
	// rendering.
	RenderServiceURL string

	// FetchTimeout bounds one source fetch. Default: 15s
	FetchTimeout time.Duration

	// DemoFallback substitutes demo meetings when a run finds nothing.
	// Default: true
	DemoFallback bool

	Sentry  SentryConfig
	Tracing TracingConfig
}

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string
	Environment string
	SampleRate  float64
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// LoadAppConfig reads AppConfig from the environment.
func LoadAppConfig() (*AppConfig, error) {
	config := &AppConfig{
		LogLevel:         pkgconfig.GetEnvString("LOG_LEVEL", "info"),
		HorizonDays:      pkgconfig.GetEnvInt("HORIZON_DAYS", DefaultHorizonDays),
		DryRun:           pkgconfig.GetEnvBool("DRY_RUN", false) || pkgconfig.GetEnvBool("TESTING", false),
		RenderServiceURL: pkgconfig.GetEnvString("RENDER_SERVICE_URL", ""),
		FetchTimeout:     pkgconfig.GetEnvDuration("FETCH_TIMEOUT", 15*time.Second),
		DemoFallback:     pkgconfig.GetEnvBool("DEMO_FALLBACK", true),
		Sentry: SentryConfig{
			DSN:         pkgconfig.GetEnvString("SENTRY_DSN", ""),
			Environment: pkgconfig.GetEnvString("SENTRY_ENVIRONMENT", "production"),
			SampleRate:  1.0,
		},
		Tracing: TracingConfig{
			Enabled:     pkgconfig.GetEnvBool("TRACING_ENABLED", false),
			ServiceName: pkgconfig.GetEnvString("OTEL_SERVICE_NAME", "politikk-moter"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *AppConfig) Validate() error {
	if c.HorizonDays < MinHorizonDays || c.HorizonDays > MaxHorizonDays {
		return fmt.Errorf("HORIZON_DAYS must be between %d and %d, got %d", MinHorizonDays, MaxHorizonDays, c.HorizonDays)
	}

	if err := pkgconfig.ValidateDurationRange(c.FetchTimeout, time.Second, 2*time.Minute); err != nil {
		return fmt.Errorf("FETCH_TIMEOUT: %w", err)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	return nil
}

// Level returns the slog level for LogLevel.
func (c *AppConfig) Level() slog.Level {
	return logging.ParseLevel(c.LogLevel)
}
