package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"offerdesk/internal/auth"
	"offerdesk/internal/models"
	"offerdesk/internal/security"
	"offerdesk/internal/service"
	"offerdesk/internal/telegram"
)

const ownerBrowser = "browser-owner"

type fakeManager struct {
	session      *models.AuthSession
	loginErr     error
	lastCallback auth.Callback
	lastBrowser  string
	loggedOut    bool
}

func (f *fakeManager) Authorize(browserID string) bool {
	return f.session != nil && browserID != "" && browserID == f.session.BrowserID
}

func (f *fakeManager) AuthCodeURL(state, redirectURL string) string {
	return "https://accounts.example/auth?" + url.Values{"state": {state}, "redirect_uri": {redirectURL}}.Encode()
}

func (f *fakeManager) CompleteLogin(ctx context.Context, cb auth.Callback, browserID string) (*models.AuthSession, error) {
	f.lastCallback = cb
	f.lastBrowser = browserID
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.session = &models.AuthSession{AccessToken: "tok", BrowserID: browserID, ExpiresAt: time.Now().Add(time.Hour)}
	return f.session, nil
}

func (f *fakeManager) Logout(ctx context.Context) error {
	f.loggedOut = true
	f.session = nil
	return nil
}

func (f *fakeManager) Refresh(ctx context.Context) error {
	if f.session == nil {
		return auth.ErrNotAuthenticated
	}
	return nil
}

func (f *fakeManager) Current() (models.AuthSession, bool) {
	if f.session == nil {
		return models.AuthSession{}, false
	}
	return *f.session, true
}

func (f *fakeManager) State() auth.State {
	if f.session == nil {
		return auth.StateAnonymous
	}
	return auth.StateAuthenticated
}

type fakeSheets struct {
	offers []models.LoanOffer
	posts  []models.ScheduledPost
	config []models.ConfigItem
}

func (f *fakeSheets) ReadOffers(ctx context.Context) ([]models.LoanOffer, error) {
	return f.offers, nil
}

func (f *fakeSheets) AppendOffer(ctx context.Context, offer models.LoanOffer) (models.LoanOffer, error) {
	offer.ID = "1"
	f.offers = append(f.offers, offer)
	return offer, nil
}

func (f *fakeSheets) ReadPosts(ctx context.Context) ([]models.ScheduledPost, error) {
	return f.posts, nil
}

func (f *fakeSheets) AppendPost(ctx context.Context, post models.ScheduledPost) error {
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakeSheets) UpdatePost(ctx context.Context, index int, post models.ScheduledPost) error {
	f.posts[index] = post
	return nil
}

func (f *fakeSheets) DeletePost(ctx context.Context, index int) error {
	f.posts = append(f.posts[:index], f.posts[index+1:]...)
	return nil
}

func (f *fakeSheets) WritePosts(ctx context.Context, posts []models.ScheduledPost) error {
	f.posts = posts
	return nil
}

func (f *fakeSheets) ReadConfig(ctx context.Context) ([]models.ConfigItem, error) {
	return f.config, nil
}

func (f *fakeSheets) WriteConfig(ctx context.Context, items []models.ConfigItem) error {
	f.config = items
	return nil
}

type fakeSender struct {
	ok bool
}

func (f *fakeSender) Send(ctx context.Context, msg telegram.Message) bool {
	return f.ok
}

type silentNotifier struct{}

func (silentNotifier) NotifyNewOffer(ctx context.Context, offer models.LoanOffer) bool { return true }
func (silentNotifier) NotifyScheduledPost(ctx context.Context, post models.ScheduledPost) bool { return true }
func (silentNotifier) NotifyError(ctx context.Context, message string) bool { return true }

type testEnv struct {
	manager *fakeManager
	sheets  *fakeSheets
	sender  *fakeSender
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		manager: &fakeManager{session: &models.AuthSession{BrowserID: ownerBrowser, ExpiresAt: time.Now().Add(time.Hour)}},
		sheets: &fakeSheets{posts: []models.ScheduledPost{{
			Date: "2026-10-15", Time: "09:30", Content: "Hello", Status: models.PostStatusPending,
		}}},
		sender: &fakeSender{ok: true},
	}

	router := Router{
		Auth: NewAuthHandler(env.manager, ""),
		API: NewAPIHandler(
			service.NewOfferService(env.sheets, silentNotifier{}),
			service.NewContentService(env.sheets, env.sender, silentNotifier{}),
			service.NewConfigService(env.sheets),
			service.NewDashboardService(env.sheets),
		),
		Events:     NewEventHub(),
		Middleware: NewMiddleware(env.manager),
	}
	env.handler = router.Handler()
	return env
}

func (env *testEnv) do(method, target, body, browser string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if browser != "" {
		req.AddCookie(&http.Cookie{Name: security.BrowserCookieName, Value: browser})
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		browser string
		want    int
	}{
		{name: "no cookie", browser: "", want: http.StatusUnauthorized},
		{name: "other browser", browser: "browser-other", want: http.StatusUnauthorized},
		{name: "owner", browser: ownerBrowser, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/dashboard", "", tt.browser)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestStartOAuthSetsCookies(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/auth/google/start", "", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	state := cookies[security.StateCookieName]
	if state == "" {
		t.Fatal("state cookie not set")
	}
	if cookies[security.BrowserCookieName] == "" {
		t.Fatal("browser cookie not set")
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	if got := location.Query().Get("state"); got != state {
		t.Errorf("state param = %q, want %q", got, state)
	}
	if got := location.Query().Get("redirect_uri"); got != "http://example.com/auth/google/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
}

func TestStartOAuthKeepsExistingBrowserCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/auth/google/start", "", ownerBrowser)
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.BrowserCookieName {
			t.Fatalf("browser cookie should not be reissued, got %q", c.Value)
		}
	}
}

func TestOAuthCallback(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		stateValue string
		browser    string
		loginErr   error
		want       int
	}{
		{name: "state mismatch", query: "state=abc&code=c", stateValue: "xyz", browser: "b1", want: http.StatusBadRequest},
		{name: "missing state cookie", query: "state=abc&code=c", browser: "b1", want: http.StatusBadRequest},
		{name: "missing browser cookie", query: "state=abc&code=c", stateValue: "abc", want: http.StatusBadRequest},
		{name: "provider error", query: "state=abc&error=access_denied", stateValue: "abc", browser: "b1", loginErr: &auth.AuthError{Code: "access_denied"}, want: http.StatusBadRequest},
		{name: "missing code", query: "state=abc", stateValue: "abc", browser: "b1", loginErr: auth.ErrMissingCode, want: http.StatusBadRequest},
		{name: "success", query: "state=abc&code=c", stateValue: "abc", browser: "b1", want: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.manager.session = nil
			env.manager.loginErr = tt.loginErr

			req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?"+tt.query, nil)
			if tt.stateValue != "" {
				req.AddCookie(&http.Cookie{Name: security.StateCookieName, Value: tt.stateValue})
			}
			if tt.browser != "" {
				req.AddCookie(&http.Cookie{Name: security.BrowserCookieName, Value: tt.browser})
			}
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusSeeOther {
				if env.manager.lastBrowser != "b1" || env.manager.lastCallback.Code != "c" {
					t.Errorf("login called with %+v / %q", env.manager.lastCallback, env.manager.lastBrowser)
				}
				if !strings.HasSuffix(env.manager.lastCallback.RedirectURL, "/auth/google/callback") {
					t.Errorf("RedirectURL = %q", env.manager.lastCallback.RedirectURL)
				}
			}
		})
	}
}

func TestSessionHidesProfileFromOtherBrowsers(t *testing.T) {
	env := newTestEnv(t)
	env.manager.session.User = models.GoogleUser{Email: "ops@example.com"}

	var resp sessionResponse
	rec := env.do(http.MethodGet, "/api/session", "", "browser-other")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Authenticated || resp.User != nil {
		t.Errorf("other browser should not see the profile: %+v", resp)
	}
	if resp.State != "authenticated" {
		t.Errorf("State = %q", resp.State)
	}

	rec = env.do(http.MethodGet, "/api/session", "", ownerBrowser)
	resp = sessionResponse{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Authenticated || resp.User == nil || resp.User.Email != "ops@example.com" {
		t.Errorf("owner should see the profile: %+v", resp)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/auth/logout", "", ownerBrowser)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if !env.manager.loggedOut {
		t.Error("manager Logout not called")
	}
}

func TestPostRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		sendOK bool
		want   int
	}{
		{name: "list", method: http.MethodGet, target: "/api/posts", want: http.StatusOK},
		{name: "create", method: http.MethodPost, target: "/api/posts", body: `{"date":"2026-10-16","time":"10:00","content":"Hi"}`, want: http.StatusCreated},
		{name: "create invalid", method: http.MethodPost, target: "/api/posts", body: `{"date":"16/10","time":"10:00","content":"Hi"}`, want: http.StatusBadRequest},
		{name: "create bad json", method: http.MethodPost, target: "/api/posts", body: `{`, want: http.StatusBadRequest},
		{name: "update", method: http.MethodPut, target: "/api/posts/0", body: `{"date":"2026-10-16","time":"10:00","content":"Edited"}`, want: http.StatusOK},
		{name: "update out of range", method: http.MethodPut, target: "/api/posts/4", body: `{"date":"2026-10-16","time":"10:00","content":"Edited"}`, want: http.StatusNotFound},
		{name: "delete bad index", method: http.MethodDelete, target: "/api/posts/abc", want: http.StatusBadRequest},
		{name: "delete", method: http.MethodDelete, target: "/api/posts/0", want: http.StatusNoContent},
		{name: "broadcast", method: http.MethodPost, target: "/api/posts/0/broadcast", sendOK: true, want: http.StatusOK},
		{name: "broadcast rejected", method: http.MethodPost, target: "/api/posts/0/broadcast", want: http.StatusBadGateway},
		{name: "test post", method: http.MethodPost, target: "/api/posts/0/test", sendOK: true, want: http.StatusOK},
		{name: "test message", method: http.MethodPost, target: "/api/posts/test", body: `{"content":"<b>x</b>"}`, sendOK: true, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.sender.ok = tt.sendOK

			rec := env.do(tt.method, tt.target, tt.body, ownerBrowser)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestBroadcastMarksDone(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/posts/0/broadcast", "", ownerBrowser)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.sheets.posts[0].Status != models.PostStatusDone {
		t.Errorf("Status = %q, want Done", env.sheets.posts[0].Status)
	}
}

func TestOfferAndConfigRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/offers", "", ownerBrowser)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty offers should encode as [], got %q", rec.Body.String())
	}

	rec = env.do(http.MethodPost, "/api/offers", `{"name":"Vay","affLink":"https://aff.example/v"}`, ownerBrowser)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create offer status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodPut, "/api/config", `[{"key":"","value":"x"}]`, ownerBrowser)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty key status = %d, want 400", rec.Code)
	}

	rec = env.do(http.MethodPut, "/api/config", `[{"key":"channel","value":"@x"}]`, ownerBrowser)
	if rec.Code != http.StatusOK {
		t.Fatalf("save config status = %d", rec.Code)
	}
	if len(env.sheets.config) != 1 || env.sheets.config[0].Value != "@x" {
		t.Errorf("config not written: %+v", env.sheets.config)
	}
}

func TestEventHubRelaysEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewEventHub()
	events := make(chan auth.Event)
	go hub.Run(ctx, events)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeEvents))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Registration races the handshake; keep publishing until one arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for i := 0; i < 100; i++ {
			select {
			case events <- auth.Event{Type: auth.EventRefreshed, User: models.GoogleUser{Email: "ops@example.com"}}:
			case <-stop:
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event auth.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if event.Type != auth.EventRefreshed || event.User.Email != "ops@example.com" {
		t.Errorf("unexpected event %+v", event)
	}
}
