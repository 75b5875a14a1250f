package app

import (
	"context"
	"fmt"
	"os"

	"bodhi/internal/config"
	"bodhi/pkg/logging"
)

// Application wires bodhi's services together.
//
// NewApplication loads configuration, initializes logging and opens the
// secret store; Run serves the HTTP API until interrupted. Commands that only
// need the services (setup, status, template) use Services directly and
// must call Close.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	if cfg.Settings == nil {
		// Text logging until the configured format is known.
		logging.InitForCLI(cliLevel(cfg.Debug), os.Stderr)

		home := cfg.Home
		if home == "" {
			var err error
			home, err = config.DefaultHome()
			if err != nil {
				return nil, fmt.Errorf("failed to determine bodhi home: %w", err)
			}
			cfg.Home = home
		}

		settings, err := config.Load(home)
		if err != nil {
			return nil, fmt.Errorf("failed to load bodhi configuration: %w", err)
		}
		cfg.Settings = &settings
	}

	initLogging(cfg)

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func cliLevel(debug bool) logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func initLogging(cfg *Config) {
	level, _ := logging.ParseLevel(cfg.Settings.Logging.Level)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	if logging.Format(cfg.Settings.Logging.Format) == logging.FormatJSON {
		logging.Init(level, logging.FormatJSON, os.Stderr)
		return
	}
	logging.InitForCLI(level, os.Stderr)
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves the HTTP API until ctx ends or the process is signalled.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.services)
}

// Close releases the services.
func (a *Application) Close() error {
	return a.services.Close()
}
