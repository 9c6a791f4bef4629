package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeTelegram records the last upstream call
type fakeTelegram struct {
	path        string
	contentType string
	jsonBody    map[string]interface{}
	form        map[string]string
	fileName    string
	fileType    string
	fileContent string
	reply       string
	status      int
}

func newFakeTelegram(t *testing.T, fake *fakeTelegram) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.path = r.URL.Path
		fake.contentType = r.Header.Get("Content-Type")
		if strings.HasPrefix(fake.contentType, "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			}
			fake.form = map[string]string{}
			for key, values := range r.MultipartForm.Value {
				fake.form[key] = values[0]
			}
			file, header, err := r.FormFile("photo")
			if err == nil {
				content, _ := io.ReadAll(file)
				fake.fileName = header.Filename
				fake.fileType = header.Header.Get("Content-Type")
				fake.fileContent = string(content)
			}
		} else {
			json.NewDecoder(r.Body).Decode(&fake.jsonBody)
		}

		status := fake.status
		if status == 0 {
			status = http.StatusOK
		}
		reply := fake.reply
		if reply == "" {
			reply = `{"ok":true,"result":{"message_id":1}}`
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(h http.Handler, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %q", rr.Body.String())
	}
	return payload
}

func TestPreflight(t *testing.T) {
	h := New(Config{BotToken: "123:abc"})

	req := httptest.NewRequest(http.MethodOptions, "/api/telegram", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestPlainOptionsReturnsEmpty200(t *testing.T) {
	rr := doRequest(New(Config{BotToken: "1:a"}), http.MethodOptions, "")
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Errorf("OPTIONS = %d %q", rr.Code, rr.Body.String())
	}

	tests := []struct {
		header   string
		contains string
	}{
		{header: "Access-Control-Allow-Origin", contains: "*"},
		{header: "Access-Control-Allow-Methods", contains: "POST"},
		{header: "Access-Control-Allow-Headers", contains: "Content-Type"},
	}
	for _, tt := range tests {
		if got := rr.Header().Get(tt.header); !strings.Contains(got, tt.contains) {
			t.Errorf("%s = %q, want it to contain %q", tt.header, got, tt.contains)
		}
	}
}

func TestErrorResponseWithoutOriginCarriesCORSHeader(t *testing.T) {
	rr := doRequest(New(Config{}), http.MethodPost, `{"body":{"chat_id":"@c","text":"hi"}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestActualRequestCarriesCORSHeader(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client()})

	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(`{"body":{"chat_id":"@c","text":"hi"}}`))
	req.Header.Set("Origin", "https://dashboard.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestMissingToken(t *testing.T) {
	rr := doRequest(New(Config{}), http.MethodPost, `{"method":"sendMessage","body":{"chat_id":"@c","text":"hi"}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decodeError(t, rr)["error"]; got != "Telegram Bot Token configuration missing" {
		t.Errorf("error = %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rr := doRequest(New(Config{BotToken: "123:abc"}), method, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s status = %d, want 405", method, rr.Code)
		}
		if got := decodeError(t, rr)["error"]; got != "Method not allowed" {
			t.Errorf("%s error = %q", method, got)
		}
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"method":`},
		{name: "body not an object", body: `{"body":[1,2]}`},
		{name: "method with path", body: `{"method":"../getMe","body":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(New(Config{BotToken: "123:abc"}), http.MethodPost, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
			if decodeError(t, rr)["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestForwardsJSON(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "server:token", APIBase: srv.URL, HTTPClient: srv.Client()})

	rr := doRequest(h, http.MethodPost, `{"body":{"chat_id":-100123,"text":"<b>hi</b>","parse_mode":"HTML"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	if fake.path != "/botserver:token/sendMessage" {
		t.Errorf("upstream path = %q", fake.path)
	}
	if fake.contentType != "application/json" {
		t.Errorf("content type = %q", fake.contentType)
	}
	if fake.jsonBody["text"] != "<b>hi</b>" || fake.jsonBody["chat_id"] != float64(-100123) {
		t.Errorf("upstream body = %v", fake.jsonBody)
	}
	if rr.Body.String() != `{"ok":true,"result":{"message_id":1}}` {
		t.Errorf("response = %q, want verbatim upstream body", rr.Body.String())
	}
}

func TestRequestTokenOverridesServerToken(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "server:token", APIBase: srv.URL, HTTPClient: srv.Client()})

	doRequest(h, http.MethodPost, `{"botToken":"client:token","method":"getMe"}`)
	if fake.path != "/botclient:token/getMe" {
		t.Errorf("upstream path = %q", fake.path)
	}
	if len(fake.jsonBody) != 0 {
		t.Errorf("missing body should be forwarded as {}, got %v", fake.jsonBody)
	}
}

func TestUpstreamErrorPassesThrough(t *testing.T) {
	fake := &fakeTelegram{
		status: http.StatusBadRequest,
		reply:  `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client()})

	rr := doRequest(h, http.MethodPost, `{"body":{"chat_id":"@missing","text":"x"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if rr.Body.String() != fake.reply {
		t.Errorf("body = %q, want upstream body", rr.Body.String())
	}
}

func TestNonJSONUpstreamIs500(t *testing.T) {
	fake := &fakeTelegram{status: http.StatusBadGateway, reply: "<html>bad gateway</html>"}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client()})

	rr := doRequest(h, http.MethodPost, `{"body":{"chat_id":"@c","text":"x"}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	payload := decodeError(t, rr)
	if payload["error"] != "Internal server error" || payload["details"] == "" {
		t.Errorf("payload = %v", payload)
	}
}

func TestDataURIPhotoIsMultipart(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client()})

	body := `{"method":"sendPhoto","body":{"chat_id":"@c","photo":"data:image/png;base64,aGVsbG8=","caption":"cap","reply_markup":{"inline_keyboard":[[{"text":"go","url":"https://x.example"}]]}}}`
	rr := doRequest(h, http.MethodPost, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(fake.contentType, "multipart/form-data") {
		t.Fatalf("content type = %q", fake.contentType)
	}
	if fake.fileName != "image.png" || fake.fileType != "image/png" || fake.fileContent != "hello" {
		t.Errorf("file = %q %q %q", fake.fileName, fake.fileType, fake.fileContent)
	}
	if fake.form["caption"] != "cap" || fake.form["chat_id"] != "@c" {
		t.Errorf("form = %v", fake.form)
	}
	var keyboard map[string]interface{}
	if err := json.Unmarshal([]byte(fake.form["reply_markup"]), &keyboard); err != nil {
		t.Errorf("reply_markup should be JSON encoded, got %q", fake.form["reply_markup"])
	}
}

func TestMalformedDataURIFallsBackToJSON(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client()})

	doRequest(h, http.MethodPost, `{"method":"sendPhoto","body":{"chat_id":"@c","photo":"data:not-base64"}}`)
	if fake.contentType != "application/json" {
		t.Errorf("content type = %q, want JSON fallback", fake.contentType)
	}
	if fake.jsonBody["photo"] != "data:not-base64" {
		t.Errorf("photo = %v", fake.jsonBody["photo"])
	}
}

func TestRateLimit(t *testing.T) {
	fake := &fakeTelegram{}
	srv := newFakeTelegram(t, fake)
	h := New(Config{BotToken: "123:abc", APIBase: srv.URL, HTTPClient: srv.Client(), RateLimit: 1})

	first := doRequest(h, http.MethodPost, `{"body":{"chat_id":"@c","text":"x"}}`)
	second := doRequest(h, http.MethodPost, `{"body":{"chat_id":"@c","text":"x"}}`)
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Errorf("statuses = %d, %d", first.Code, second.Code)
	}
}
