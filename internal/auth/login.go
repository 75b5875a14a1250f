package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"bodhi/internal/secrets"
	"bodhi/pkg/oauth"
)

// LoginRequest is an authorization code request ready to be sent to the
// browser. State and Verifier must be kept by the caller for the callback.
type LoginRequest struct {
	URL      string
	State    string
	Verifier string
}

// OAuth2Config builds the client configuration for a registered application.
func (s *Service) OAuth2Config(ctx context.Context, reg secrets.AppRegistration, redirectURI string) (*oauth2.Config, error) {
	cfg, _, err := s.oauth2Config(ctx, reg, redirectURI)
	return cfg, err
}

func (s *Service) oauth2Config(ctx context.Context, reg secrets.AppRegistration, redirectURI string) (*oauth2.Config, *oauth.Metadata, error) {
	metadata, err := s.client.DiscoverMetadata(ctx, reg.Issuer)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover provider metadata: %w", err)
	}

	scopes := []string{"openid"}
	for _, scope := range s.cfg.Scopes {
		if scope != "openid" {
			scopes = append(scopes, scope)
		}
	}

	return &oauth2.Config{
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
		Endpoint:     metadata.Endpoint(),
		RedirectURL:  redirectURI,
		Scopes:       scopes,
	}, metadata, nil
}

// NewLoginRequest prepares an authorization code flow with PKCE.
func (s *Service) NewLoginRequest(ctx context.Context, reg secrets.AppRegistration, redirectURI string) (*LoginRequest, error) {
	cfg, metadata, err := s.oauth2Config(ctx, reg, redirectURI)
	if err != nil {
		return nil, err
	}
	if !metadata.SupportsPKCE() {
		return nil, fmt.Errorf("provider %s does not support S256 PKCE", reg.Issuer)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	return &LoginRequest{
		URL:      cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		State:    state,
		Verifier: verifier,
	}, nil
}
