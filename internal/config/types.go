package config

import "time"

// Config is the top-level configuration structure for bodhi.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Hub     HubConfig     `yaml:"hub"`
	Logging LoggingConfig `yaml:"logging"`

	// DataDir holds the secret store and the alias directory (default: the
	// bodhi home).
	DataDir string `yaml:"dataDir,omitempty" env:"BODHI_DATA_DIR"`
}

// ServerConfig is the address the HTTP server listens on. It is also the
// address registered with the identity provider as login callback.
type ServerConfig struct {
	Host   string `yaml:"host,omitempty" env:"BODHI_HOST"`     // default: localhost
	Port   int    `yaml:"port,omitempty" env:"BODHI_PORT"`     // default: 1135
	Scheme string `yaml:"scheme,omitempty" env:"BODHI_SCHEME"` // default: http
}

// AuthConfig describes the identity provider used when setup enables
// authorization.
type AuthConfig struct {
	// URL and Realm form the issuer for Keycloak style providers.
	URL   string `yaml:"url,omitempty" env:"BODHI_AUTH_URL"`
	Realm string `yaml:"realm,omitempty" env:"BODHI_AUTH_REALM"`
	// Issuer overrides URL and Realm.
	Issuer             string   `yaml:"issuer,omitempty" env:"BODHI_AUTH_ISSUER"`
	ClientName         string   `yaml:"clientName,omitempty" env:"BODHI_AUTH_CLIENT_NAME"`
	InitialAccessToken string   `yaml:"initialAccessToken,omitempty" env:"BODHI_AUTH_INITIAL_ACCESS_TOKEN"`
	Scopes             []string `yaml:"scopes,omitempty" env:"BODHI_AUTH_SCOPES" envSeparator:","`
	// MetadataCacheTTL bounds how long discovered provider metadata is
	// reused. Zero keeps the client default.
	MetadataCacheTTL time.Duration `yaml:"metadataCacheTTL,omitempty" env:"BODHI_AUTH_METADATA_CACHE_TTL"`
}

// HubConfig configures the model file cache.
type HubConfig struct {
	CacheDir   string `yaml:"cacheDir,omitempty" env:"BODHI_HUB_CACHE_DIR"`
	Endpoint   string `yaml:"endpoint,omitempty" env:"HF_ENDPOINT"`
	Token      string `yaml:"token,omitempty" env:"HF_TOKEN"`
	AliasesDir string `yaml:"aliasesDir,omitempty" env:"BODHI_ALIASES_DIR"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" env:"BODHI_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" env:"BODHI_LOG_FORMAT"` // text, json
}
