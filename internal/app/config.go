package app

import (
	"bodhi/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug enables debug logging regardless of the configured level.
	Debug bool

	// Home is the bodhi home directory. Empty selects config.DefaultHome.
	Home string

	// Version is reported by /app/info and recorded with the setup state.
	Version string

	// Settings is the loaded configuration. When set before NewApplication,
	// loading from Home is skipped.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, home, version string) *Config {
	return &Config{
		Debug:   debug,
		Home:    home,
		Version: version,
	}
}
