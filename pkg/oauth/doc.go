// Package oauth implements the relying-party side of the OAuth protocol
// operations bodhi performs against its identity provider.
//
// # Core Components
//
//   - Metadata: OAuth/OIDC server metadata (RFC 8414 / OIDC discovery)
//   - ClientMetadata / ClientRegistration: dynamic client registration (RFC 7591)
//   - JSONWebKeySet: published verification keys (RFC 7517)
//   - Client: HTTP client for discovery, registration and key set fetches
//
// # Usage
//
//	client := oauth.NewClient(oauth.WithLogger(logging.Logger("OAuth")))
//	metadata, err := client.DiscoverMetadata(ctx, issuer)
//	reg, err := client.RegisterClient(ctx, metadata.RegistrationEndpoint, "", oauth.ClientMetadata{
//	    ClientName:   "bodhi",
//	    RedirectURIs: uris,
//	})
//	keys, err := client.FetchJWKS(ctx, metadata.JwksURI)
//
// Metadata lookups are cached per issuer and concurrent lookups for the same
// issuer are collapsed into a single request.
package oauth
