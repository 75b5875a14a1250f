package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultHost   = "localhost"
	DefaultPort   = 1135
	DefaultScheme = "http"

	DefaultHubEndpoint = "https://huggingface.co"

	// HomeEnv overrides the bodhi home directory.
	HomeEnv = "BODHI_HOME"

	homeDirName     = ".cache/bodhi"
	hubCacheDirName = ".cache/huggingface/hub"
	aliasesDirName  = "aliases"
	secretsFileName = "secrets.db"
	configFileName  = "config.yaml"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// DefaultHome returns the bodhi home directory: $BODHI_HOME, or
// ~/.cache/bodhi.
func DefaultHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	userHome, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, homeDirName), nil
}

// GetDefaultConfig returns the configuration used when no config.yaml exists.
// Paths are left empty and filled relative to the home directory by Load.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:   DefaultHost,
			Port:   DefaultPort,
			Scheme: DefaultScheme,
		},
		Hub: HubConfig{
			Endpoint: DefaultHubEndpoint,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyPathDefaults fills directories that were not configured.
func (c *Config) applyPathDefaults(home string) error {
	if c.DataDir == "" {
		c.DataDir = home
	}
	if c.Hub.AliasesDir == "" {
		c.Hub.AliasesDir = filepath.Join(c.DataDir, aliasesDirName)
	}
	if c.Hub.CacheDir == "" {
		userHome, err := osUserHomeDir()
		if err != nil {
			return err
		}
		c.Hub.CacheDir = filepath.Join(userHome, hubCacheDirName)
	}
	return nil
}

// SecretsPath is the location of the secret store database.
func (c Config) SecretsPath() string {
	return filepath.Join(c.DataDir, secretsFileName)
}
