package config

// Settings exposes the server address and build version to the setup
// controller.
type Settings struct {
	server  ServerConfig
	version string
}

// NewSettings returns the settings view of cfg.
func NewSettings(cfg Config, version string) Settings {
	return Settings{server: cfg.Server, version: version}
}

func (s Settings) Host() string { return s.server.Host }
func (s Settings) Scheme() string { return s.server.Scheme }
func (s Settings) Port() int { return s.server.Port }
func (s Settings) Version() string { return s.version }
