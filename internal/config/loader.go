package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bodhi/pkg/logging"
)

// Load reads config.yaml from home on top of the defaults, applies
// environment overrides, fills default paths and validates the result.
// A missing config.yaml is not an error.
func Load(home string) (Config, error) {
	configFilePath := filepath.Join(home, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, &ConfigurationError{
				FilePath:    configFilePath,
				ErrorType:   "parse",
				Message:     "invalid YAML",
				Details:     err.Error(),
				Suggestions: []string{"Check indentation and quoting in config.yaml"},
				Err:         err,
			}
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "io", Message: err.Error(), Err: err}
	}

	if err := ParseEnv(&config); err != nil {
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "env", Message: err.Error(), Err: err}
	}
	if err := config.applyPathDefaults(home); err != nil {
		return Config{}, fmt.Errorf("could not determine default directories: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, &ConfigurationError{
			FilePath:  configFilePath,
			ErrorType: "validation",
			Message:   err.Error(),
			Err:       err,
		}
	}
	return config, nil
}

// Save writes cfg to config.yaml in home.
func Save(home string, cfg Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(home, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
