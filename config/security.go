package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/c360/ringkit/errors"
)

const (
	// Security limits for configuration
	maxConfigSize = 1 << 20 // 1MB max config file size
	maxEnvVarLen  = 4096    // Maximum environment variable value length
	maxPathLen    = 4096    // Maximum file path length
)

// validateConfigPath does basic path validation
func validateConfigPath(path string) error {
	if path == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Config", "Load", "empty config path")
	}

	if len(path) > maxPathLen {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
			fmt.Sprintf("path too long: %d > %d", len(path), maxPathLen))
	}

	// Only allow TOML config files
	if filepath.Ext(path) != ".toml" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
			fmt.Sprintf("only TOML config files allowed: %s", path))
	}

	return nil
}

// safeReadFile reads a config file with security validation
func safeReadFile(path string) ([]byte, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrMissingConfig, err),
				"Config", "Load", "stat config file")
		}
		return nil, errors.WrapTransient(err, "Config", "Load", "stat config file")
	}

	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
			fmt.Sprintf("not a regular file: %s", path))
	}

	if info.Size() > maxConfigSize {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
			fmt.Sprintf("config file too large: %d bytes > %d", info.Size(), maxConfigSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapTransient(err, "Config", "Load", "read config file")
	}

	return data, nil
}

// validateEnvVar does basic environment variable validation
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	return nil
}
