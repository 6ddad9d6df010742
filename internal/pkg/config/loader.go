// Package config provides fail-open loaders for worker settings: a malformed
// or out-of-range value falls back to its default with a warning instead of
// aborting startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// LoadResult is the outcome of loading one value.
//
// Example:
//
//	res := LoadEnvWithFallback("CRON_SCHEDULE", "0 7 * * *", ValidateCronSchedule)
//	if res.FallbackApplied {
//	    logger.Warn("configuration fallback", slog.String("warning", res.Warning))
//	}
//	schedule := res.Value
type LoadResult[T any] struct {
	Value           T
	Warning         string
	FallbackApplied bool
}

// LoadEnvWithFallback loads a string and checks it with validator, which may
// be nil. An unset variable yields the default without a warning.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads a base-10 integer.
//
// Example:
//
//	res := LoadEnvInt("HORIZON_DAYS", 10, func(v int) error { return ValidateIntRange(v, 1, 60) })
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return load(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvDuration loads a duration. Day and week units are accepted ("2d").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return load(envKey, defaultValue, str2duration.ParseDuration, validator)
}

// LoadEnvBool loads a boolean. Accepted values are true/false, 1/0, yes/no
// and on/off in any case.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return load(envKey, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "t", "true", "y", "yes", "on":
			return true, nil
		case "0", "f", "false", "n", "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
	}, nil)
}

func load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(value)
	}
	if err != nil {
		return LoadResult[T]{
			Value:           defaultValue,
			Warning:         fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}
	return LoadResult[T]{Value: value}
}
