package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"tokengate"
	"tokengate/middleware"
)

// ErrInvalidCredentials is what a [CredentialVerifier] returns for a wrong
// email/password combination. The handler maps it to 401 without detail.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier authenticates login credentials and resolves them to a
// principal. Implemented by the host application.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (tokengate.Principal, error)
}

// Handler serves the /auth/* endpoints.
type Handler struct {
	engine   *tokengate.Engine
	verifier CredentialVerifier
}

func NewHandler(engine *tokengate.Engine, verifier CredentialVerifier) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("engine required")
	}
	if verifier == nil {
		return nil, errors.New("credential verifier required")
	}
	return &Handler{engine: engine, verifier: verifier}, nil
}

// Routes returns a mux with every /auth/* endpoint mounted. logout-all is
// wrapped in the access-token guard; the rest authenticate by token body.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.Handle("POST /auth/logout-all", middleware.Guard(h.engine)(http.HandlerFunc(h.logoutAll)))
	return mux
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx := withClientIP(r)

	principal, err := h.verifier.VerifyCredentials(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, middleware.MessageUnauthorized)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "login unavailable")
		return
	}

	pair, err := h.engine.IssuePair(ctx, principal)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "login unavailable")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    h.engine.AccessTTL().String(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   string `json:"expiresIn"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	grant, err := h.engine.Refresh(withClientIP(r), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokengate.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, middleware.MessageExpired)
		case errors.Is(err, tokengate.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "refresh unavailable")
		default:
			// Revoked, invalid, unknown or inactive principal all collapse
			// to one rejection. The client's only recourse is a new login.
			writeError(w, http.StatusUnauthorized, middleware.MessageUnauthorized)
		}
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: grant.AccessToken,
		ExpiresIn:   h.engine.AccessTTL().String(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	err := h.engine.Logout(withClientIP(r), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, tokengate.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "logout unavailable")
		default:
			writeError(w, http.StatusUnauthorized, middleware.MessageUnauthorized)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, middleware.MessageUnauthorized)
		return
	}

	if err := h.engine.LogoutAll(withClientIP(r), principal.ID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "logout unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func withClientIP(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return tokengate.WithClientIP(r.Context(), host)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
