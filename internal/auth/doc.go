// Package auth talks to the identity provider on behalf of the application.
//
// Service.RegisterClient performs OpenID Connect discovery, registers a
// confidential client through RFC 7591 dynamic registration and fetches the
// provider's signing key, producing the secrets.AppRegistration persisted at
// setup. NewLoginRequest builds the authorization code redirect used once the
// application is registered.
package auth
