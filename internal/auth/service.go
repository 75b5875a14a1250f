package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"bodhi/internal/secrets"
	"bodhi/pkg/logging"
	"bodhi/pkg/oauth"
)

const (
	// DefaultClientName is sent as client_name when registering.
	DefaultClientName = "Bodhi App"

	authMethodClientSecretBasic = "client_secret_basic"
)

// Config describes the identity provider bodhi registers with.
type Config struct {
	// Issuer is the identity provider's issuer URL.
	Issuer string
	// ClientName is the human readable client name shown by the provider.
	ClientName string
	// InitialAccessToken authorizes dynamic registration when the provider
	// requires it.
	InitialAccessToken string
	// Scopes requested at login. openid is always included.
	Scopes []string
}

// Issuer builds the issuer URL for a Keycloak style realm.
func Issuer(authURL, realm string) string {
	authURL = strings.TrimRight(authURL, "/")
	if realm == "" {
		return authURL
	}
	return authURL + "/realms/" + realm
}

// Service registers bodhi as an OAuth client with the identity provider.
type Service struct {
	client *oauth.Client
	cfg    Config
}

// NewService creates a Service using client for all provider requests.
func NewService(client *oauth.Client, cfg Config) *Service {
	if cfg.ClientName == "" {
		cfg.ClientName = DefaultClientName
	}
	cfg.Issuer = oauth.NormalizeIssuer(cfg.Issuer)
	return &Service{client: client, cfg: cfg}
}

// RegisterClient registers a confidential client for redirectURIs and
// returns the credentials together with the provider's token signing key.
func (s *Service) RegisterClient(ctx context.Context, redirectURIs []string) (*secrets.AppRegistration, error) {
	if s.cfg.Issuer == "" {
		return nil, &RegistrationError{Step: "configuration", Err: errors.New("identity provider issuer is not configured")}
	}
	if len(redirectURIs) == 0 {
		return nil, &RegistrationError{Step: "configuration", Err: errors.New("at least one redirect URI is required")}
	}

	metadata, err := s.client.DiscoverMetadata(ctx, s.cfg.Issuer)
	if err != nil {
		return nil, &RegistrationError{Step: "discovery", Err: err}
	}
	if metadata.Issuer != "" && oauth.NormalizeIssuer(metadata.Issuer) != s.cfg.Issuer {
		return nil, &RegistrationError{Step: "discovery", Err: fmt.Errorf("issuer mismatch: configured %s, provider reports %s", s.cfg.Issuer, metadata.Issuer)}
	}
	if !metadata.SupportsDynamicRegistration() {
		return nil, &RegistrationError{Step: "discovery", Err: errors.New("provider does not support dynamic client registration")}
	}
	if metadata.JwksURI == "" {
		return nil, &RegistrationError{Step: "discovery", Err: errors.New("provider metadata has no jwks_uri")}
	}

	logging.Info("Auth", "Registering client %q with %s for %d redirect URIs", s.cfg.ClientName, s.cfg.Issuer, len(redirectURIs))

	reg, err := s.client.RegisterClient(ctx, metadata.RegistrationEndpoint, s.cfg.InitialAccessToken, oauth.ClientMetadata{
		ClientName:              s.cfg.ClientName,
		RedirectURIs:            redirectURIs,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: authMethodClientSecretBasic,
		ApplicationType:         "web",
	})
	if err != nil {
		// Endpoints may have moved; rediscover on the next attempt.
		s.client.ClearMetadataCache()
		return nil, &RegistrationError{Step: "registration", Err: err}
	}
	if reg.ClientSecret == "" {
		return nil, &RegistrationError{Step: "registration", Err: errors.New("provider issued no client secret")}
	}

	keys, err := s.client.FetchJWKS(ctx, metadata.JwksURI)
	if err != nil {
		return nil, &RegistrationError{Step: "key retrieval", Err: err}
	}
	key, err := keys.SigningKey()
	if err != nil {
		return nil, &RegistrationError{Step: "key retrieval", Err: err}
	}

	alg := signingAlg(key, metadata)
	publicKey, err := key.PublicKeyPEM()
	if err != nil {
		return nil, &RegistrationError{Step: "key retrieval", Err: err}
	}
	if err := checkSigningKey(alg, publicKey); err != nil {
		return nil, &RegistrationError{Step: "key retrieval", Err: err}
	}

	issuer := s.cfg.Issuer
	if metadata.Issuer != "" {
		issuer = oauth.NormalizeIssuer(metadata.Issuer)
	}

	logging.Info("Auth", "Registered client %s (key %s, %s)", reg.ClientID, key.Kid, alg)

	return &secrets.AppRegistration{
		PublicKey:    publicKey,
		Alg:          alg,
		Kid:          key.Kid,
		Issuer:       issuer,
		ClientID:     reg.ClientID,
		ClientSecret: reg.ClientSecret,
	}, nil
}

// signingAlg picks the key's declared algorithm, then the provider's first
// advertised ID token algorithm matching the key type, then the key type
// default.
func signingAlg(key *oauth.JSONWebKey, metadata *oauth.Metadata) string {
	if key.Alg != "" {
		return key.Alg
	}
	families := []string{"RS", "PS"}
	if key.Kty == "EC" {
		families = []string{"ES"}
	}
	for _, alg := range metadata.IDTokenSigningAlgValuesSupported {
		for _, family := range families {
			if strings.HasPrefix(alg, family) {
				return alg
			}
		}
	}
	return families[0] + "256"
}

// checkSigningKey verifies that alg is a known asymmetric signing method and
// that the PEM holds a key it can verify with.
func checkSigningKey(alg, publicKeyPEM string) error {
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	var err error
	switch method.(type) {
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		_, err = jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	case *jwt.SigningMethodECDSA:
		_, err = jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	default:
		return fmt.Errorf("signing algorithm %q is not asymmetric", alg)
	}
	if err != nil {
		return fmt.Errorf("public key does not match %s: %w", alg, err)
	}
	return nil
}
