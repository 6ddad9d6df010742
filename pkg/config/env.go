// Package config provides environment variable helpers shared by the
// binaries. Every getter returns the default when the variable is unset, and
// logs a warning before returning the default when the value is malformed.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// GetEnvString returns the value of key, or defaultValue when unset or empty.
//
// Example:
//
//	url := GetEnvString("RENDER_SERVICE_URL", "")
func GetEnvString(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns the value of key as an integer.
//
// Example:
//
//	port := GetEnvInt("WORKER_HEALTH_PORT", 9091)
func GetEnvInt(key string, defaultValue int) int {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvBool returns the value of key as a boolean.
//
// Accepted true values: "1", "t", "true", "y", "yes", "on"
// Accepted false values: "0", "f", "false", "n", "no", "off"
//
// Matching is case-insensitive.
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	if value, ok := ParseBool(valueStr); ok {
		return value
	}
	slog.Warn("invalid boolean value for environment variable, using default",
		slog.String("key", key),
		slog.String("value", valueStr),
		slog.Bool("default", defaultValue))
	return defaultValue
}

// ParseBool parses the boolean spellings accepted by GetEnvBool.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, true
	case "0", "f", "false", "n", "no", "off":
		return false, true
	}
	return false, false
}

// GetEnvDuration returns the value of key as a time.Duration.
//
// Besides the time.ParseDuration units the value may use days and weeks
// ("10d", "1w2d").
//
// Example:
//
//	timeout := GetEnvDuration("RUN_TIMEOUT", 15*time.Minute)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := str2duration.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvStringList returns a comma-separated list from key. Values are
// trimmed and empty values dropped.
//
// Example:
//
//	// POLITIKK_PIPELINES="standard, utvidet"
//	keys := GetEnvStringList("POLITIKK_PIPELINES", nil)
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
