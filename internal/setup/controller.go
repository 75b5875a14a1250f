package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bodhi/internal/secrets"
	"bodhi/pkg/logging"
)

// Store is the part of the secret store the controller needs.
type Store interface {
	secrets.Reader

	Transition(ctx context.Context, from secrets.AppStatus, fn func(w secrets.Writer) error) error
	Exclusive(ctx context.Context, fn func(ctx context.Context) error) error
}

// Registrar registers the application with an identity provider.
type Registrar interface {
	RegisterClient(ctx context.Context, redirectURIs []string) (*secrets.AppRegistration, error)
}

// Settings exposes the server settings setup depends on.
type Settings interface {
	Host() string
	Scheme() string
	Port() int
	Version() string
}

// Result is the outcome of a successful setup.
type Result struct {
	Status secrets.AppStatus `json:"status"`
}

// AppInfo describes the application's current setup state.
type AppInfo struct {
	Version string            `json:"version"`
	Authz   bool              `json:"authz"`
	Status  secrets.AppStatus `json:"status"`
}

// Controller performs the one-time transition out of StatusSetup.
type Controller struct {
	store     Store
	registrar Registrar
	settings  Settings
}

// NewController creates a Controller. registrar may be nil when no identity
// provider is configured; setup with authorization then fails.
func NewController(store Store, registrar Registrar, settings Settings) *Controller {
	return &Controller{store: store, registrar: registrar, settings: settings}
}

// Setup moves the application to StatusResourceAdmin (requestAuthz) or
// StatusReady. It fails with KindAlreadySetup once either has been reached.
// Concurrent calls are serialized through the store, so at most one client
// registration happens per store. Either every value is persisted or none.
func (c *Controller) Setup(ctx context.Context, requestAuthz bool) (Result, error) {
	opID := uuid.NewString()
	var result Result

	err := c.store.Exclusive(ctx, func(ctx context.Context) error {
		status, err := c.store.AppStatus(ctx)
		if err != nil {
			return &Error{Kind: KindStore, Err: err}
		}
		if status.IsTerminal() {
			logging.Warn("Setup", "[%s] Rejected setup: app is already in status %s", opID, status)
			return &Error{Kind: KindAlreadySetup, Err: fmt.Errorf("app is already in status %s", status)}
		}

		if requestAuthz {
			result.Status, err = c.setupWithAuthz(ctx, opID)
		} else {
			result.Status, err = c.setupWithoutAuthz(ctx, opID)
		}
		return err
	})
	if err != nil {
		if KindOf(err) == 0 {
			// Exclusive itself failed, e.g. the context ended while waiting.
			return Result{}, &Error{Kind: KindStore, Err: err}
		}
		return Result{}, err
	}
	return result, nil
}

func (c *Controller) setupWithAuthz(ctx context.Context, opID string) (secrets.AppStatus, error) {
	if c.registrar == nil {
		return "", &Error{Kind: KindValidation, Err: errors.New("no identity provider is configured")}
	}

	host, scheme, port := c.settings.Host(), c.settings.Scheme(), c.settings.Port()
	if err := validateServer(host, scheme, port); err != nil {
		return "", &Error{Kind: KindValidation, Err: err}
	}

	uris := BuildRedirectURIs(host, scheme, port)
	logging.Info("Setup", "[%s] Registering app with identity provider for %s", opID, strings.Join(uris, ", "))

	reg, err := c.registrar.RegisterClient(ctx, uris)
	if err != nil {
		logging.Error("Setup", err, "[%s] Client registration failed, nothing persisted", opID)
		return "", &Error{Kind: KindRegistration, Err: err}
	}
	if reg == nil {
		return "", &Error{Kind: KindRegistration, Err: errors.New("identity provider returned no registration")}
	}

	err = c.store.Transition(ctx, secrets.StatusSetup, func(w secrets.Writer) error {
		if err := w.SetAppRegistration(ctx, *reg); err != nil {
			return err
		}
		if err := w.SetAuthz(ctx, true); err != nil {
			return err
		}
		return w.SetAppStatus(ctx, secrets.StatusResourceAdmin)
	})
	if secrets.IsStatusConflict(err) {
		logging.Error("Setup", err, "[%s] Status changed during registration, client %s was not stored", opID, reg.ClientID)
		return "", &Error{Kind: KindAlreadySetup, Err: err}
	}
	if err != nil {
		// The client now exists at the provider but not locally; status stays
		// setup so an operator can retry.
		logging.Error("Setup", err, "[%s] Failed to persist registration for client %s", opID, reg.ClientID)
		return "", &Error{Kind: KindStore, Err: err}
	}

	logging.Info("Setup", "[%s] App registered as client %s, status %s", opID, reg.ClientID, secrets.StatusResourceAdmin)
	return secrets.StatusResourceAdmin, nil
}

func (c *Controller) setupWithoutAuthz(ctx context.Context, opID string) (secrets.AppStatus, error) {
	logging.Info("Setup", "[%s] Setting authz to false", opID)

	err := c.store.Transition(ctx, secrets.StatusSetup, func(w secrets.Writer) error {
		if err := w.SetAuthz(ctx, false); err != nil {
			return err
		}
		return w.SetAppStatus(ctx, secrets.StatusReady)
	})
	if secrets.IsStatusConflict(err) {
		return "", &Error{Kind: KindAlreadySetup, Err: err}
	}
	if err != nil {
		return "", &Error{Kind: KindStore, Err: err}
	}

	logging.Info("Setup", "[%s] App set up without authorization, status %s", opID, secrets.StatusReady)
	return secrets.StatusReady, nil
}

// Info reports the version, authorization flag and status.
func (c *Controller) Info(ctx context.Context) (AppInfo, error) {
	status, err := c.store.AppStatus(ctx)
	if err != nil {
		return AppInfo{}, &Error{Kind: KindStore, Err: err}
	}
	authz, err := c.store.Authz(ctx)
	if err != nil {
		return AppInfo{}, &Error{Kind: KindStore, Err: err}
	}
	return AppInfo{
		Version: c.settings.Version(),
		Authz:   authz,
		Status:  status,
	}, nil
}

// Registration returns the stored registration, or nil before setup with
// authorization has completed.
func (c *Controller) Registration(ctx context.Context) (*secrets.AppRegistration, error) {
	reg, err := c.store.AppRegistration(ctx)
	if err != nil {
		return nil, &Error{Kind: KindStore, Err: err}
	}
	return reg, nil
}

func validateServer(host, scheme string, port int) error {
	var problems []string
	if host == "" || strings.ContainsAny(host, "/ \t@?#") || strings.Contains(host, "://") {
		problems = append(problems, fmt.Sprintf("invalid host %q", host))
	}
	if scheme != "http" && scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid scheme %q (expected http or https)", scheme))
	}
	if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d", port))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
