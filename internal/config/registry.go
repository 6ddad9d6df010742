package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"politikk-moter/internal/domain/entity"
)

// RegistryEnv names the variable holding a registry file path that replaces
// the embedded default.
const RegistryEnv = "POLITIKK_CONFIG"

//go:embed defaults.yaml
var defaultRegistry []byte

// ParseRegistry decodes and validates a registry document. Unknown keys are
// rejected so a misspelled field does not silently drop a setting.
func ParseRegistry(data []byte) (*entity.Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var reg entity.Registry
	if err := dec.Decode(&reg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse registry: empty document")
		}
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	return &reg, nil
}

// DefaultRegistry returns the registry compiled into the binary.
func DefaultRegistry() (*entity.Registry, error) {
	return ParseRegistry(defaultRegistry)
}

// LoadRegistry reads the registry at path. An empty path means the embedded
// default. The path is expected to come from a trusted source (CLI flag or
// environment).
func LoadRegistry(path string) (*entity.Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRegistry()
	}

	// #nosec G304 -- path comes from the operator, not from request input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// LoadRegistryFromEnv loads the file named by POLITIKK_CONFIG, or the
// embedded default when it is unset.
func LoadRegistryFromEnv() (*entity.Registry, error) {
	return LoadRegistry(os.Getenv(RegistryEnv))
}
