package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"bodhi/internal/secrets"
	"bodhi/internal/setup"
	"bodhi/pkg/logging"
)

const (
	stateCookie    = "bodhi_oauth_state"
	verifierCookie = "bodhi_pkce_verifier"
	cookieMaxAge   = 600
)

type pingResponse struct {
	Message string `json:"message"`
}

type setupRequest struct {
	Authz *bool `json:"authz"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Message: "pong"})
}

func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.controller.Info(r.Context())
	if err != nil {
		writeSetupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("failed to parse the request body: %v", err))
		return
	}
	if req.Authz == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing field `authz`")
		return
	}

	result, err := s.controller.Setup(r.Context(), *req.Authz)
	if err != nil {
		writeSetupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	info, err := s.controller.Info(ctx)
	if err != nil {
		writeSetupError(w, err)
		return
	}

	switch info.Status {
	case secrets.StatusReady:
		// Nothing to log in to without an identity provider.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	case secrets.StatusSetup:
		writeError(w, http.StatusBadRequest, "app_not_setup", "the app must be set up before logging in")
		return
	}

	reg, err := s.controller.Registration(ctx)
	if err != nil {
		writeSetupError(w, err)
		return
	}
	if reg == nil || s.login == nil {
		writeError(w, http.StatusInternalServerError, "app_reg_info_missing", "the app registration is not available")
		return
	}

	redirectURI := setup.BuildRedirectURIs(s.settings.Host(), s.settings.Scheme(), s.settings.Port())[0]
	login, err := s.login.NewLoginRequest(ctx, *reg, redirectURI)
	if err != nil {
		logging.Error("Server", err, "Failed to prepare login redirect")
		writeError(w, http.StatusInternalServerError, "auth_service_error", err.Error())
		return
	}

	secure := s.settings.Scheme() == "https"
	for name, value := range map[string]string{stateCookie: login.State, verifierCookie: login.Verifier} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     EndpointLogin,
			MaxAge:   cookieMaxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, login.URL, http.StatusFound)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func writeSetupError(w http.ResponseWriter, err error) {
	var setupErr *setup.Error
	if !errors.As(err, &setupErr) {
		logging.Error("Server", err, "Unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	switch setupErr.Kind {
	case setup.KindAlreadySetup:
		writeError(w, http.StatusBadRequest, "already_setup", "app is already setup")
	case setup.KindRegistration:
		writeError(w, http.StatusInternalServerError, "auth_service_error", setupErr.Error())
	case setup.KindValidation:
		writeError(w, http.StatusInternalServerError, "invalid_settings", setupErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "secret_service_error", setupErr.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	errType := "internal_server_error"
	if status < http.StatusInternalServerError {
		errType = "invalid_request_error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: errType, Code: code}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("Server", "Failed to write response: %v", err)
	}
}
