package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"offerdesk/internal/auth"
	"offerdesk/internal/models"
	"offerdesk/internal/security"
)

// SessionManager is the part of auth.Manager the HTTP layer drives
type SessionManager interface {
	Authorizer
	AuthCodeURL(state, redirectURL string) string
	CompleteLogin(ctx context.Context, cb auth.Callback, browserID string) (*models.AuthSession, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Current() (models.AuthSession, bool)
	State() auth.State
}

// AuthHandler runs the Google consent flow and exposes the session slot
type AuthHandler struct {
	manager         SessionManager
	redirectBaseURL string
	afterLoginPath  string
}

// NewAuthHandler creates an auth handler. redirectBaseURL overrides the
// callback origin derived from the request.
func NewAuthHandler(manager SessionManager, redirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		manager:         manager,
		redirectBaseURL: redirectBaseURL,
		afterLoginPath:  "/",
	}
}

// StartOAuth sends the browser to the Google consent page
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	if security.BrowserID(r) == "" {
		security.SetCookie(w, r, security.BrowserCookieName, security.GenerateID(), browserCookieTTL)
	}

	state := security.GenerateID()
	security.SetCookie(w, r, security.StateCookieName, state, stateCookieTTL)

	http.Redirect(w, r, h.manager.AuthCodeURL(state, h.redirectURL(r)), http.StatusFound)
}

// OAuthCallback completes the consent flow and binds the session to this browser
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	stateCookie, err := r.Cookie(security.StateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	security.SetCookie(w, r, security.StateCookieName, "", 0)

	browserID := security.BrowserID(r)
	if browserID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing browser cookie", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, err = h.manager.CompleteLogin(ctx, auth.Callback{
		Code:             query.Get("code"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
		RedirectURL:      h.redirectURL(r),
	}, browserID)
	if err != nil {
		var authErr *auth.AuthError
		switch {
		case errors.As(err, &authErr):
			respondWithError(w, http.StatusBadRequest, "Google sign-in failed: "+authErr.Code, "OAuth callback rejected", err)
		case errors.Is(err, auth.ErrMissingCode):
			respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		default:
			respondWithError(w, http.StatusBadGateway, "Google sign-in failed", "OAuth callback failed", err)
		}
		return
	}

	http.Redirect(w, r, h.afterLoginPath, http.StatusSeeOther)
}

// Logout revokes and clears the session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh renews the access token immediately
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Refresh(r.Context()); err != nil {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		respondWithError(w, http.StatusBadGateway, "Token refresh failed", "", err)
		return
	}
	h.Session(w, r)
}

type sessionResponse struct {
	State         string             `json:"state"`
	Authenticated bool               `json:"authenticated"`
	User          *models.GoogleUser `json:"user,omitempty"`
	ExpiresAt     *time.Time         `json:"expiresAt,omitempty"`
}

// Session reports the slot state; profile details only go to the owning browser
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{State: h.manager.State().String()}

	if h.manager.Authorize(security.BrowserID(r)) {
		if session, ok := h.manager.Current(); ok {
			resp.Authenticated = true
			resp.User = &session.User
			resp.ExpiresAt = &session.ExpiresAt
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) redirectURL(r *http.Request) string {
	baseURL := strings.TrimSpace(h.redirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return strings.TrimRight(baseURL, "/") + "/auth/google/callback"
}
