package handlers

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"offerdesk/internal/security"
)

// Authorizer decides whether a browser owns the signed-in session
type Authorizer interface {
	Authorize(browserID string) bool
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth Authorizer
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth Authorizer) *Middleware {
	return &Middleware{auth: auth}
}

// RequireAuth rejects requests whose browser cookie does not match the
// stored session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.auth.Authorize(security.BrowserID(r)) {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}
		next(w, r)
	}
}

// statusRecorder keeps the status code for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes websocket upgrades through to the underlying connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Logging writes one access line per request
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
