package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"bodhi/internal/auth"
	"bodhi/internal/secrets"
	"bodhi/internal/setup"
	"bodhi/pkg/logging"
)

const (
	EndpointPing     = "/ping"
	EndpointAppInfo  = "/app/info"
	EndpointAppSetup = "/app/setup"
	EndpointLogin    = "/app/login"

	readHeaderTimeout = 10 * time.Second
	maxRequestBody    = 1 << 20
)

// Controller is the setup surface the HTTP routes call into.
type Controller interface {
	Setup(ctx context.Context, requestAuthz bool) (setup.Result, error)
	Info(ctx context.Context) (setup.AppInfo, error)
	Registration(ctx context.Context) (*secrets.AppRegistration, error)
}

// LoginStarter prepares the identity provider redirect for /app/login.
type LoginStarter interface {
	NewLoginRequest(ctx context.Context, reg secrets.AppRegistration, redirectURI string) (*auth.LoginRequest, error)
}

// Server serves the application setup API.
type Server struct {
	controller Controller
	login      LoginStarter
	settings   setup.Settings

	httpServer *http.Server
}

// New creates a Server. login may be nil when no identity provider is
// configured; /app/login then fails for registered apps.
func New(controller Controller, login LoginStarter, settings setup.Settings) *Server {
	s := &Server{controller: controller, login: login, settings: settings}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(settings.Host(), strconv.Itoa(settings.Port())),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+EndpointPing, s.handlePing)
	mux.HandleFunc("GET "+EndpointAppInfo, s.handleAppInfo)
	mux.HandleFunc("POST "+EndpointAppSetup, s.handleSetup)
	mux.HandleFunc("GET "+EndpointLogin, s.handleLogin)
	return logRequests(mux)
}

// Start listens on the configured host and port and serves until Shutdown
// is called. Requests inherit ctx.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }

	logging.Info("Server", "Listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully. A server that was never started
// refuses to start afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Server", "%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
