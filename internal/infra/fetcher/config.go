package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

// Config controls the direct page transport.
//
// Security settings:
//   - DenyPrivateIPs: blocks hosts that resolve to private addresses
//   - MaxBodySize: caps the bytes read from one response
//   - MaxRedirects: caps redirect chains, each hop is re-validated
//
// Politeness settings:
//   - RatePerHost / Burst: token bucket applied per target host
type Config struct {
	// Timeout is the maximum duration of a single HTTP request.
	// Default: 15s
	Timeout time.Duration

	// MaxBodySize is the maximum response size in bytes.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of redirects to follow.
	// Default: 5
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to loopback, private or
	// link-local addresses. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool

	// RatePerHost is the sustained request rate allowed per host, in
	// requests per second. Zero disables pacing.
	// Default: 2
	RatePerHost float64

	// Burst is the token bucket size per host.
	// Default: 4
	Burst int

	// UserAgent is used when the caller does not set one.
	UserAgent string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:        15 * time.Second,
		MaxBodySize:    10 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		RatePerHost:    2,
		Burst:          4,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	}
}

// Validate checks that the configuration values are usable.
//
// Validation rules:
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
//   - RatePerHost: >= 0, Burst >= 1 when pacing is enabled
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	if c.RatePerHost < 0 {
		return fmt.Errorf("rate per host must be non-negative, got %v", c.RatePerHost)
	}
	if c.RatePerHost > 0 && c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1 when pacing is enabled, got %d", c.Burst)
	}

	return nil
}

// LoadConfigFromEnv loads the transport configuration.
//
// Environment variables:
//   - FETCH_TIMEOUT: duration, e.g. "15s" (default: 15s)
//   - FETCH_MAX_BODY_SIZE: bytes (default: 10485760)
//   - FETCH_MAX_REDIRECTS: integer (default: 5)
//   - FETCH_DENY_PRIVATE_IPS: "true" or "false" (default: true)
//   - FETCH_RATE_PER_HOST: requests per second (default: 2)
//   - FETCH_BURST: integer (default: 4)
//   - FETCH_USER_AGENT: string
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		parsed, err := str2duration.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %v (expected format: '15s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	if val := os.Getenv("FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if val := os.Getenv("FETCH_RATE_PER_HOST"); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_RATE_PER_HOST: %v", err)
		}
		cfg.RatePerHost = parsed
	}

	if val := os.Getenv("FETCH_BURST"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_BURST: %v", err)
		}
		cfg.Burst = parsed
	}

	if val := os.Getenv("FETCH_USER_AGENT"); val != "" {
		cfg.UserAgent = val
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
