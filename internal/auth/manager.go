package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"offerdesk/internal/models"
)

// SessionLifetime is the validity assumed for a freshly issued access token
const SessionLifetime = 3600 * time.Second

// ExpiryMargin is how long before expiry a session is refreshed
const ExpiryMargin = 5 * time.Minute

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrMissingCode      = errors.New("missing authorization code")
)

// State of the session slot
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// AuthError carries an error payload returned by the identity provider
type AuthError struct {
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return "oauth error: " + e.Code
	}
	return fmt.Sprintf("oauth error: %s: %s", e.Code, e.Description)
}

// Store persists the single session slot
type Store interface {
	Load(ctx context.Context) (models.AuthSession, bool, error)
	Save(ctx context.Context, session models.AuthSession) error
	Clear(ctx context.Context) error
}

// Callback is the query of the provider redirect
type Callback struct {
	Code             string
	Error            string
	ErrorDescription string
	RedirectURL      string
}

// Options configures a Manager
type Options struct {
	OAuth           *oauth2.Config
	Store           Store
	RefreshInterval time.Duration
	OfflineAccess   bool
	UserInfoURL     string
	RevokeURL       string
	HTTPClient      *http.Client
	Now             func() time.Time
}

// Manager owns the signed-in Google session: consent, persistence,
// proactive refresh and expiry.
type Manager struct {
	oauth         *oauth2.Config
	store         Store
	interval      time.Duration
	offlineAccess bool
	userInfoURL   string
	revokeURL     string
	httpClient    *http.Client
	now           func() time.Time

	initOnce sync.Once
	initErr  error

	// writeMu serializes every change to the persisted slot
	writeMu sync.Mutex

	mu      sync.RWMutex
	state   State
	session *models.AuthSession

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSub     int
}

// NewManager creates a manager in the Uninitialized state
func NewManager(opts Options) *Manager {
	m := &Manager{
		oauth:         opts.OAuth,
		store:         opts.Store,
		interval:      opts.RefreshInterval,
		offlineAccess: opts.OfflineAccess,
		userInfoURL:   opts.UserInfoURL,
		revokeURL:     opts.RevokeURL,
		httpClient:    opts.HTTPClient,
		now:           opts.Now,
		subscribers:   make(map[int]chan Event),
	}
	if m.interval <= 0 {
		m.interval = 5 * time.Minute
	}
	if m.userInfoURL == "" {
		m.userInfoURL = GoogleUserInfoURL
	}
	if m.revokeURL == "" {
		m.revokeURL = GoogleRevokeURL
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// IsNearExpiration reports whether expiresAt falls within the refresh margin
func IsNearExpiration(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt.Add(-ExpiryMargin))
}

// Initialize restores the stored session once. Later calls return the
// first result. Store failures leave the manager Anonymous.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.writeMu.Lock()
		defer m.writeMu.Unlock()

		m.setState(StateLoading, nil)

		session, ok, err := m.store.Load(ctx)
		if err != nil {
			log.Printf("Failed to restore auth session: %v", err)
			m.initErr = err
			m.setState(StateAnonymous, nil)
			return
		}
		if !ok {
			m.setState(StateAnonymous, nil)
			return
		}
		if session.IsExpiredAt(m.now()) {
			log.Printf("Stored auth session for %s expired at %s, discarding", session.User.Email, session.ExpiresAt.Format(time.RFC3339))
			if err := m.store.Clear(ctx); err != nil {
				log.Printf("Failed to clear expired auth session: %v", err)
			}
			m.setState(StateAnonymous, nil)
			return
		}
		m.setState(StateAuthenticated, &session)
	})
	return m.initErr
}

// AuthCodeURL returns the consent page address for state
func (m *Manager) AuthCodeURL(state, redirectURL string) string {
	config := *m.oauth
	config.RedirectURL = redirectURL

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if m.offlineAccess {
		options = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	}
	return config.AuthCodeURL(state, options...)
}

// CompleteLogin exchanges the authorization code and stores the new session
// bound to browserID.
func (m *Manager) CompleteLogin(ctx context.Context, cb Callback, browserID string) (*models.AuthSession, error) {
	if cb.Error != "" {
		return nil, &AuthError{Code: cb.Error, Description: cb.ErrorDescription}
	}
	if cb.Code == "" {
		return nil, ErrMissingCode
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	config := *m.oauth
	config.RedirectURL = cb.RedirectURL

	token, err := config.Exchange(ctx, cb.Code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			return nil, &AuthError{Code: retrieveErr.ErrorCode, Description: retrieveErr.ErrorDescription}
		}
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	user, ok := userFromIDToken(token)
	if !ok {
		user, err = m.fetchUserInfo(ctx, token)
		if err != nil {
			return nil, err
		}
	}

	session := models.AuthSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    m.now().Add(SessionLifetime),
		User:         user,
		BrowserID:    browserID,
	}

	m.writeMu.Lock()
	if err := m.store.Save(ctx, session); err != nil {
		m.writeMu.Unlock()
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	m.setState(StateAuthenticated, &session)
	m.writeMu.Unlock()

	log.Printf("Signed in as %s", user.Email)
	m.publish(EventSignedIn, user)
	return &session, nil
}

// Logout revokes the held token (best effort) and clears the slot
func (m *Manager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.logout(ctx, EventSignedOut)
}

// logout runs with writeMu held. reason is the event published to
// subscribers: EventSignedOut for the user, EventExpired for a lost session.
func (m *Manager) logout(ctx context.Context, reason EventType) error {
	session, ok := m.Current()
	if ok {
		if err := m.revoke(ctx, session.AccessToken); err != nil {
			log.Printf("Failed to revoke Google token: %v", err)
		}
	}

	err := m.store.Clear(ctx)
	if err != nil {
		log.Printf("Failed to clear auth session: %v", err)
	}

	m.setState(StateAnonymous, nil)
	m.publish(reason, session.User)
	return err
}

// Refresh extends the session. With a refresh token a new access token is
// obtained; otherwise the held token is re-stored with a new expiry. Any
// failure signs the user out and publishes EventExpired. The slot stays locked from read to save, so a
// concurrent logout or login is never overwritten.
func (m *Manager) Refresh(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	read, ok := m.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	session := read
	err := m.renew(ctx, &session)
	if err == nil && !m.holds(read) {
		return ErrNotAuthenticated
	}
	if err == nil {
		err = m.store.Save(ctx, session)
	}
	if err != nil {
		log.Printf("Failed to refresh auth session for %s: %v", read.User.Email, err)
		if logoutErr := m.logout(ctx, EventExpired); logoutErr != nil {
			log.Printf("Logout after failed refresh: %v", logoutErr)
		}
		return err
	}

	m.setState(StateAuthenticated, &session)
	m.publish(EventRefreshed, session.User)
	return nil
}

// holds reports whether the active session is still the one that was read
func (m *Manager) holds(read models.AuthSession) bool {
	current, ok := m.Current()
	return ok && current.AccessToken == read.AccessToken && current.BrowserID == read.BrowserID
}

// renew obtains a new access token when possible and sets the new expiry
func (m *Manager) renew(ctx context.Context, session *models.AuthSession) error {
	expiresAt := m.now().Add(SessionLifetime)

	if session.RefreshToken != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
		// An expiry in the past forces the token source to hit the endpoint
		stale := &oauth2.Token{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			Expiry:       time.Unix(1, 0),
		}
		token, err := m.oauth.TokenSource(ctx, stale).Token()
		if err != nil {
			return err
		}
		session.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			session.RefreshToken = token.RefreshToken
		}
		if !token.Expiry.IsZero() {
			expiresAt = token.Expiry
		}
	}

	session.ExpiresAt = expiresAt
	return nil
}

// HandleUnauthorized expires the session after Google rejected its token
func (m *Manager) HandleUnauthorized(ctx context.Context) {
	if m.State() != StateAuthenticated {
		return
	}
	log.Println("Google rejected the access token, expiring session")
	m.expire(ctx)
}

func (m *Manager) expire(ctx context.Context) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	session, ok := m.Current()
	if !ok {
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		log.Printf("Failed to clear expired auth session: %v", err)
	}
	m.setState(StateAnonymous, nil)
	m.publish(EventExpired, session.User)
}

// Run checks the session immediately and then every refresh interval until
// ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Manager) check(ctx context.Context) {
	session, ok := m.Current()
	if !ok {
		return
	}

	now := m.now()
	switch {
	case session.IsExpiredAt(now):
		log.Printf("Auth session for %s expired", session.User.Email)
		m.expire(ctx)
	case IsNearExpiration(session.ExpiresAt, now):
		if err := m.Refresh(ctx); err != nil {
			log.Printf("Scheduled refresh failed: %v", err)
		}
	}
}

// Current returns a copy of the active session
func (m *Manager) Current() (models.AuthSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return models.AuthSession{}, false
	}
	return *m.session, true
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Authorize reports whether browserID owns the active session
func (m *Manager) Authorize(browserID string) bool {
	session, ok := m.Current()
	if !ok || browserID == "" || session.BrowserID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.BrowserID), []byte(browserID)) == 1
}

// TokenSource exposes the active access token to API clients
func (m *Manager) TokenSource() oauth2.TokenSource {
	return managerTokenSource{m: m}
}

type managerTokenSource struct {
	m *Manager
}

func (s managerTokenSource) Token() (*oauth2.Token, error) {
	session, ok := s.m.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
		Expiry:      session.ExpiresAt,
	}, nil
}

func (m *Manager) setState(state State, session *models.AuthSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.session = session
}
