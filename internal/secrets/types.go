package secrets

import (
	"context"
	"fmt"
)

// AppStatus is the lifecycle stage of the application's authorization
// configuration.
type AppStatus string

const (
	// StatusSetup is the initial status; it is also reported when nothing has
	// been persisted yet.
	StatusSetup AppStatus = "setup"
	// StatusReady means the application was set up without an identity provider.
	StatusReady AppStatus = "ready"
	// StatusResourceAdmin means the application is registered with an identity
	// provider and waits for its first administrator.
	StatusResourceAdmin AppStatus = "resource-admin"
)

// ParseAppStatus converts a persisted value into an AppStatus.
func ParseAppStatus(s string) (AppStatus, error) {
	switch AppStatus(s) {
	case StatusSetup, StatusReady, StatusResourceAdmin:
		return AppStatus(s), nil
	default:
		return "", fmt.Errorf("unknown app status %q", s)
	}
}

// IsTerminal reports whether no operation transitions out of the status.
func (s AppStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusResourceAdmin
}

func (s AppStatus) String() string {
	return string(s)
}

// AppRegistration is the OAuth client registered with the identity provider
// during setup. It is written once and never mutated.
type AppRegistration struct {
	PublicKey    string `json:"public_key"`
	Alg          string `json:"alg"`
	Kid          string `json:"kid"`
	Issuer       string `json:"issuer"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Reader exposes the persisted setup state.
type Reader interface {
	// Authz returns the authorization flag. An unset flag reads as true.
	Authz(ctx context.Context) (bool, error)
	// AppStatus returns the persisted status, or StatusSetup when unset.
	AppStatus(ctx context.Context) (AppStatus, error)
	// AppRegistration returns the registration record, or nil when absent.
	AppRegistration(ctx context.Context) (*AppRegistration, error)
}

// Writer persists individual setup values.
type Writer interface {
	SetAuthz(ctx context.Context, authz bool) error
	SetAppStatus(ctx context.Context, status AppStatus) error
	SetAppRegistration(ctx context.Context, reg AppRegistration) error
}

// Store is durable storage for the setup state.
//
// Store implementations serialize callers of Exclusive: at most one function
// passed to Exclusive runs at a time for a given store, across every handle
// open on the same backing file. Update applies all writes made through the
// supplied Writer atomically; if fn returns an error nothing is persisted.
// Transition does the same but only commits while the persisted status is
// still from, failing with a StatusConflictError otherwise.
type Store interface {
	Reader
	Writer

	Update(ctx context.Context, fn func(w Writer) error) error
	Transition(ctx context.Context, from AppStatus, fn func(w Writer) error) error
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
	Close() error
}

const (
	keyAuthz           = "authz"
	keyAppStatus       = "app_status"
	keyAppRegistration = "app_reg_info"
)
