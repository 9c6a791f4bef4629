package security

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cookie names used by the dashboard
const (
	BrowserCookieName = "offerdesk_browser"
	StateCookieName   = "offerdesk_oauth_state"
)

// GenerateID returns a random id for OAuth state and browser binding
func GenerateID() string {
	return uuid.NewString()
}

// IsSecureRequest reports HTTPS, including TLS terminated at a reverse proxy
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil || r.URL.Scheme == "https" {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetCookie writes an HttpOnly, SameSite=Lax cookie living for ttl.
// A ttl of zero or less removes the cookie.
func SetCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl / time.Second)
		cookie.Expires = time.Now().Add(ttl)
	} else {
		cookie.Value = ""
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}

// BrowserID returns the browser binding cookie value, or "" when absent
func BrowserID(r *http.Request) string {
	if cookie, err := r.Cookie(BrowserCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
