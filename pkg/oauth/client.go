package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMetadataCacheTTL is the default TTL for cached OAuth metadata.
	DefaultMetadataCacheTTL = 30 * time.Minute

	// maxErrorBody bounds how much of an error response is kept for diagnostics.
	maxErrorBody = 4096
)

// HTTPError is returned when the authorization server answers with an
// unexpected status code.
type HTTPError struct {
	Operation  string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s request to %s failed with status %d", e.Operation, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s request to %s failed with status %d: %s", e.Operation, e.URL, e.StatusCode, e.Body)
}

// metadataCacheEntry holds cached OAuth metadata with its timestamp.
type metadataCacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// Client handles the OAuth protocol operations bodhi needs as a relying
// party: metadata discovery, dynamic client registration and key set fetches.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	metadataMu    sync.RWMutex
	metadataCache map[string]*metadataCacheEntry
	metadataTTL   time.Duration

	// deduplicates concurrent metadata fetches for the same issuer
	metadataGroup singleflight.Group
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetadataCacheTTL sets the metadata cache TTL.
func WithMetadataCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.metadataTTL = ttl
	}
}

// NewClient creates a new OAuth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		logger:        slog.Default(),
		metadataCache: make(map[string]*metadataCacheEntry),
		metadataTTL:   DefaultMetadataCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// DiscoverMetadata fetches OAuth metadata from the issuer's well-known endpoint.
// It tries OpenID Connect discovery first, then falls back to RFC 8414.
//
// Results are cached with a TTL to reduce network requests.
func (c *Client) DiscoverMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	issuer = NormalizeIssuer(issuer)

	if m, ok := c.cachedMetadata(issuer); ok {
		return m, nil
	}

	result, err, _ := c.metadataGroup.Do(issuer, func() (interface{}, error) {
		if m, ok := c.cachedMetadata(issuer); ok {
			return m, nil
		}
		return c.doDiscoverMetadata(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Metadata), nil
}

func (c *Client) cachedMetadata(issuer string) (*Metadata, bool) {
	c.metadataMu.RLock()
	defer c.metadataMu.RUnlock()
	entry, ok := c.metadataCache[issuer]
	if !ok || time.Since(entry.fetchedAt) >= c.metadataTTL {
		return nil, false
	}
	return entry.metadata, true
}

func (c *Client) doDiscoverMetadata(ctx context.Context, issuer string) (*Metadata, error) {
	var metadata Metadata
	err := c.getJSON(ctx, "metadata", issuer+"/.well-known/openid-configuration", &metadata)
	if err == nil {
		c.cacheMetadata(issuer, &metadata)
		return &metadata, nil
	}

	c.logger.Debug("OIDC discovery failed, trying RFC 8414",
		"issuer", issuer,
		"error", err)

	err = c.getJSON(ctx, "metadata", issuer+"/.well-known/oauth-authorization-server", &metadata)
	if err == nil {
		c.cacheMetadata(issuer, &metadata)
		return &metadata, nil
	}

	return nil, fmt.Errorf("failed to discover OAuth metadata for %s: %w", issuer, err)
}

func (c *Client) cacheMetadata(issuer string, metadata *Metadata) {
	c.metadataMu.Lock()
	c.metadataCache[issuer] = &metadataCacheEntry{
		metadata:  metadata,
		fetchedAt: time.Now(),
	}
	c.metadataMu.Unlock()

	c.logger.Debug("Cached OAuth metadata",
		"issuer", issuer,
		"registration_endpoint", metadata.RegistrationEndpoint,
		"jwks_uri", metadata.JwksURI)
}

// ClearMetadataCache clears the metadata cache.
func (c *Client) ClearMetadataCache() {
	c.metadataMu.Lock()
	c.metadataCache = make(map[string]*metadataCacheEntry)
	c.metadataMu.Unlock()
}

// RegisterClient performs RFC 7591 dynamic client registration against the
// given registration endpoint. initialAccessToken is sent as a bearer token
// when the server requires one; pass "" otherwise.
func (c *Client) RegisterClient(ctx context.Context, registrationEndpoint, initialAccessToken string, meta ClientMetadata) (*ClientRegistration, error) {
	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if initialAccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+initialAccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client registration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, newHTTPError("registration", registrationEndpoint, resp)
	}

	var reg ClientRegistration
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	if reg.ClientID == "" {
		return nil, fmt.Errorf("registration response from %s has no client_id", registrationEndpoint)
	}

	c.logger.Debug("Registered OAuth client",
		"endpoint", registrationEndpoint,
		"client_id", reg.ClientID,
		"redirect_uris", len(meta.RedirectURIs))

	return &reg, nil
}

// FetchJWKS downloads the JSON Web Key Set published at jwksURI.
func (c *Client) FetchJWKS(ctx context.Context, jwksURI string) (*JSONWebKeySet, error) {
	var set JSONWebKeySet
	if err := c.getJSON(ctx, "jwks", jwksURI, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Client) getJSON(ctx context.Context, operation, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newHTTPError(operation, target, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", operation, err)
	}
	return nil
}

func newHTTPError(operation, target string, resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{
		Operation:  operation,
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
	}
}
