package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bodhi/internal/secrets"
	"bodhi/pkg/oauth"
)

const testRealm = "bodhi"

// fakeProvider is a minimal OpenID provider with dynamic registration.
type fakeProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	registerStatus int
	noRegistration bool
	pkceMethods    []string
	discoveries    int32
	omitKeyAlg     bool
	registrations  int32
	lastRequest    oauth.ClientMetadata
	lastAuthHeader string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{key: key, registerStatus: http.StatusCreated}
	mux := http.NewServeMux()
	prefix := "/realms/" + testRealm

	mux.HandleFunc(prefix+"/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.discoveries, 1)
		m := oauth.Metadata{
			Issuer:                           p.issuer(),
			AuthorizationEndpoint:            p.issuer() + "/protocol/openid-connect/auth",
			TokenEndpoint:                    p.issuer() + "/protocol/openid-connect/token",
			JwksURI:                          p.issuer() + "/protocol/openid-connect/certs",
			IDTokenSigningAlgValuesSupported: []string{"PS256", "RS256"},
			CodeChallengeMethodsSupported:    p.pkceMethods,
		}
		if !p.noRegistration {
			m.RegistrationEndpoint = p.issuer() + "/clients-registrations/openid-connect"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	})

	mux.HandleFunc(prefix+"/clients-registrations/openid-connect", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.registrations, 1)
		p.lastAuthHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&p.lastRequest)
		if p.registerStatus != http.StatusCreated {
			http.Error(w, `{"error":"invalid_redirect_uri"}`, p.registerStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(oauth.ClientRegistration{
			ClientID:     "resource-abc",
			ClientSecret: "change-me",
			RedirectURIs: p.lastRequest.RedirectURIs,
		})
	})

	mux.HandleFunc(prefix+"/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		jwk := oauth.JSONWebKey{
			Kty: "RSA",
			Kid: "kid-1",
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(p.key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.key.E)).Bytes()),
		}
		if p.omitKeyAlg {
			jwk.Alg = ""
		}
		encKey := oauth.JSONWebKey{Kty: "RSA", Kid: "enc", Use: "enc"}
		_ = json.NewEncoder(w).Encode(oauth.JSONWebKeySet{Keys: []oauth.JSONWebKey{encKey, jwk}})
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) issuer() string {
	return Issuer(p.server.URL, testRealm)
}

func (p *fakeProvider) service(cfg Config) *Service {
	cfg.Issuer = p.issuer()
	return NewService(oauth.NewClient(oauth.WithHTTPClient(p.server.Client())), cfg)
}

var testRedirects = []string{
	"http://localhost:1135/app/login/callback",
	"http://127.0.0.1:1135/app/login/callback",
	"http://0.0.0.0:1135/app/login/callback",
}

func TestIssuer(t *testing.T) {
	assert.Equal(t, "https://id.example.com/realms/bodhi", Issuer("https://id.example.com/", "bodhi"))
	assert.Equal(t, "https://id.example.com", Issuer("https://id.example.com", ""))
}

func TestRegisterClient(t *testing.T) {
	p := newFakeProvider(t)
	svc := p.service(Config{InitialAccessToken: "iat"})

	reg, err := svc.RegisterClient(context.Background(), testRedirects)
	require.NoError(t, err)

	assert.Equal(t, "resource-abc", reg.ClientID)
	assert.Equal(t, "change-me", reg.ClientSecret)
	assert.Equal(t, "RS256", reg.Alg)
	assert.Equal(t, "kid-1", reg.Kid)
	assert.Equal(t, p.issuer(), reg.Issuer)

	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(reg.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, 0, pub.N.Cmp(p.key.N))

	assert.Equal(t, "Bearer iat", p.lastAuthHeader)
	assert.Equal(t, testRedirects, p.lastRequest.RedirectURIs)
	assert.Equal(t, DefaultClientName, p.lastRequest.ClientName)
	assert.Equal(t, "client_secret_basic", p.lastRequest.TokenEndpointAuthMethod)
}

func TestRegisterClient_AlgFromMetadata(t *testing.T) {
	p := newFakeProvider(t)
	p.omitKeyAlg = true

	reg, err := p.service(Config{}).RegisterClient(context.Background(), testRedirects)
	require.NoError(t, err)
	assert.Equal(t, "PS256", reg.Alg)
}

func TestRegisterClient_Failures(t *testing.T) {
	t.Run("provider rejects registration", func(t *testing.T) {
		p := newFakeProvider(t)
		p.registerStatus = http.StatusBadRequest

		_, err := p.service(Config{}).RegisterClient(context.Background(), testRedirects)
		require.Error(t, err)
		assert.True(t, IsRegistrationError(err))

		var httpErr *oauth.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	})

	t.Run("no registration endpoint", func(t *testing.T) {
		p := newFakeProvider(t)
		p.noRegistration = true

		_, err := p.service(Config{}).RegisterClient(context.Background(), testRedirects)
		var regErr *RegistrationError
		require.ErrorAs(t, err, &regErr)
		assert.Equal(t, "discovery", regErr.Step)
		assert.Zero(t, atomic.LoadInt32(&p.registrations))
	})

	t.Run("no redirect URIs", func(t *testing.T) {
		p := newFakeProvider(t)
		_, err := p.service(Config{}).RegisterClient(context.Background(), nil)
		assert.True(t, IsRegistrationError(err))
	})

	t.Run("issuer not configured", func(t *testing.T) {
		svc := NewService(oauth.NewClient(), Config{})
		_, err := svc.RegisterClient(context.Background(), testRedirects)
		assert.True(t, IsRegistrationError(err))
	})
}

func TestCheckSigningKey(t *testing.T) {
	assert.Error(t, checkSigningKey("none", ""))
	assert.Error(t, checkSigningKey("HS256", ""))
	assert.Error(t, checkSigningKey("ES256", "not a pem"))
}

func TestNewLoginRequest(t *testing.T) {
	p := newFakeProvider(t)
	svc := p.service(Config{Scopes: []string{"openid", "profile"}})

	reg := secrets.AppRegistration{Issuer: p.issuer(), ClientID: "resource-abc", ClientSecret: "change-me"}
	req, err := svc.NewLoginRequest(context.Background(), reg, testRedirects[0])
	require.NoError(t, err)

	assert.NotEmpty(t, req.State)
	assert.NotEmpty(t, req.Verifier)
	require.True(t, strings.HasPrefix(req.URL, p.issuer()+"/protocol/openid-connect/auth?"))

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "resource-abc", q.Get("client_id"))
	assert.Equal(t, testRedirects[0], q.Get("redirect_uri"))
	assert.Equal(t, "openid profile", q.Get("scope"))
	assert.Equal(t, req.State, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
}

func TestNewLoginRequest_RequiresS256(t *testing.T) {
	p := newFakeProvider(t)
	p.pkceMethods = []string{"plain"}
	svc := p.service(Config{})

	reg := secrets.AppRegistration{Issuer: p.issuer(), ClientID: "resource-abc", ClientSecret: "change-me"}
	_, err := svc.NewLoginRequest(context.Background(), reg, testRedirects[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PKCE")
}

func TestRegisterClient_RediscoversAfterFailure(t *testing.T) {
	p := newFakeProvider(t)
	p.registerStatus = http.StatusInternalServerError
	svc := p.service(Config{})

	_, err := svc.RegisterClient(context.Background(), testRedirects)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.discoveries))

	p.registerStatus = http.StatusCreated
	_, err = svc.RegisterClient(context.Background(), testRedirects)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&p.discoveries), "metadata is fetched again after a failed registration")
}
