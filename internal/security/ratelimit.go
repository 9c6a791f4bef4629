package security

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter counts relay calls per client in fixed windows
type RateLimiter struct {
	mu             sync.Mutex
	windows        map[string]*window
	limit          int
	length         time.Duration
	trustForwarded bool
	lastSweep      time.Time
	now            func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewRateLimiter allows limit calls per client in each window of length.
// Clients are keyed by socket address unless trustForwarded is set, which is
// only safe behind a reverse proxy that overwrites X-Forwarded-For.
func NewRateLimiter(limit int, length time.Duration, trustForwarded bool) *RateLimiter {
	return &RateLimiter{
		windows:        make(map[string]*window),
		limit:          limit,
		length:         length,
		trustForwarded: trustForwarded,
		now:            time.Now,
	}
}

// Allow records one call from client and reports whether it fits the window
func (rl *RateLimiter) Allow(client string) bool {
	ok, _ := rl.take(client)
	return ok
}

// take returns the time left in the client's window when the call is refused
func (rl *RateLimiter) take(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w := rl.windows[client]
	if w == nil || now.Sub(w.start) >= rl.length {
		w = &window{start: now}
		rl.windows[client] = w
	}
	if w.count >= rl.limit {
		return false, rl.length - now.Sub(w.start)
	}
	w.count++
	return true, 0
}

// sweep drops expired windows at most once per window length. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.length {
		return
	}
	for client, w := range rl.windows {
		if now.Sub(w.start) >= rl.length {
			delete(rl.windows, client)
		}
	}
	rl.lastSweep = now
}

// Middleware answers 429 with Retry-After once a client exceeds the limit
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.take(ClientIP(r, rl.trustForwarded))
		if !ok {
			seconds := int(wait.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the socket address of the caller. With trustForwarded the
// first X-Forwarded-For hop (or X-Real-IP) wins; clients can forge those
// headers when nothing in front of the server rewrites them.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
			if value := r.Header.Get(header); value != "" {
				first, _, _ := strings.Cut(value, ",")
				return strings.TrimSpace(first)
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
