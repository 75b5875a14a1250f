package app

import (
	"context"
	"fmt"

	"bodhi/internal/auth"
	"bodhi/internal/chattemplate"
	"bodhi/internal/config"
	"bodhi/internal/hub"
	"bodhi/internal/secrets"
	"bodhi/internal/server"
	"bodhi/internal/setup"
	"bodhi/pkg/logging"
	"bodhi/pkg/oauth"
)

// Services holds all initialized services used by the application.
type Services struct {
	// Store persists the setup state.
	Store secrets.Store

	// Auth registers the app with the identity provider. It is nil when no
	// provider is configured.
	Auth *auth.Service

	// Setup performs and reports the one-time setup.
	Setup *setup.Controller

	// Hub locates model files and alias records.
	Hub *hub.Service

	// Templates resolves chat templates for aliases.
	Templates *chattemplate.Resolver

	// Server is the HTTP API.
	Server *server.Server
}

// InitializeServices opens the secret store and creates every service.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	settings := *cfg.Settings

	store, err := secrets.Open(ctx, secrets.Options{Path: settings.SecretsPath()})
	if err != nil {
		return nil, fmt.Errorf("failed to open secret store: %w", err)
	}

	services, err := newServices(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return services, nil
}

// newServices wires the services around an already opened store.
func newServices(cfg *Config, store secrets.Store) (*Services, error) {
	settings := *cfg.Settings
	serverSettings := config.NewSettings(settings, cfg.Version)

	var authService *auth.Service
	var registrar setup.Registrar
	var login server.LoginStarter
	if issuer := issuerFor(settings.Auth); issuer != "" {
		opts := []oauth.ClientOption{oauth.WithLogger(logging.Logger("OAuth"))}
		if ttl := settings.Auth.MetadataCacheTTL; ttl > 0 {
			opts = append(opts, oauth.WithMetadataCacheTTL(ttl))
		}
		authService = auth.NewService(
			oauth.NewClient(opts...),
			auth.Config{
				Issuer:             issuer,
				ClientName:         settings.Auth.ClientName,
				InitialAccessToken: settings.Auth.InitialAccessToken,
				Scopes:             settings.Auth.Scopes,
			},
		)
		registrar = authService
		login = authService
		logging.Debug("Bootstrap", "Identity provider: %s", issuer)
	} else {
		logging.Debug("Bootstrap", "No identity provider configured")
	}

	registry, err := hub.LoadRegistry(settings.Hub.AliasesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}
	hubService := hub.NewService(
		hub.NewCache(settings.Hub.CacheDir, hub.WithEndpoint(settings.Hub.Endpoint), hub.WithToken(settings.Hub.Token)),
		registry,
	)

	controller := setup.NewController(store, registrar, serverSettings)

	return &Services{
		Store:     store,
		Auth:      authService,
		Setup:     controller,
		Hub:       hubService,
		Templates: chattemplate.NewResolver(hubService, registry),
		Server:    server.New(controller, login, serverSettings),
	}, nil
}

func issuerFor(cfg config.AuthConfig) string {
	if cfg.Issuer != "" {
		return cfg.Issuer
	}
	if cfg.URL == "" {
		return ""
	}
	return auth.Issuer(cfg.URL, cfg.Realm)
}

// Close releases the secret store.
func (s *Services) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
