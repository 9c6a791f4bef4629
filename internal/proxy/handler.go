package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/rs/cors"

	"offerdesk/internal/security"
	"offerdesk/internal/telegram"
)

const defaultMethod = "sendMessage"

var methodPattern = regexp.MustCompile(`^[A-Za-z]+$`)

var allowedMethods = []string{"GET", "OPTIONS", "PATCH", "DELETE", "POST", "PUT"}

// Headers accepted from browsers calling the proxy
var allowedHeaders = []string{
	"X-CSRF-Token", "X-Requested-With", "Accept", "Accept-Version", "Content-Length",
	"Content-MD5", "Content-Type", "Date", "X-Api-Version",
}

// Config configures the proxy handler
type Config struct {
	BotToken   string
	APIBase    string
	RateLimit  int // requests per minute per client, 0 disables
	HTTPClient *http.Client

	// TrustForwarded keys the rate limit by X-Forwarded-For. Set it only
	// behind a reverse proxy that overwrites the header.
	TrustForwarded bool
}

// Handler forwards Bot API calls so the bot token never reaches the browser
type Handler struct {
	botToken string
	apiBase  string
	client   *http.Client
}

func NewHandler(cfg Config) *Handler {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	return &Handler{botToken: cfg.BotToken, apiBase: apiBase, client: client}
}

// New returns the proxy wrapped with open CORS and, when configured, a
// per-client rate limit.
func New(cfg Config) http.Handler {
	var h http.Handler = NewHandler(cfg)
	if cfg.RateLimit > 0 {
		h = security.NewRateLimiter(cfg.RateLimit, time.Minute, cfg.TrustForwarded).Middleware(h)
	}
	return openCORS(cors.New(cors.Options{
		AllowedOrigins:       []string{"*"},
		AllowedMethods:       allowedMethods,
		AllowedHeaders:       allowedHeaders,
		OptionsSuccessStatus: http.StatusOK,
	}).Handler(h))
}

// openCORS sets the allow headers on requests without an Origin, which
// rs/cors passes through untouched. Browser requests keep rs/cors handling.
func openCORS(next http.Handler) http.Handler {
	methods := strings.Join(allowedMethods, ",")
	headers := strings.Join(allowedHeaders, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
		}
		next.ServeHTTP(w, r)
	})
}

type proxyRequest struct {
	BotToken string          `json:"botToken"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	token := req.BotToken
	if token == "" {
		token = h.botToken
	}
	if token == "" {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Telegram Bot Token configuration missing"})
		return
	}

	method := req.Method
	if method == "" {
		method = defaultMethod
	}
	if !methodPattern.MatchString(method) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid method"})
		return
	}

	body, err := decodeBody(req.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		return
	}

	status, data, err := h.forward(r.Context(), token, method, body)
	if err != nil {
		log.Printf("Proxy error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	if status < 200 || status > 299 {
		log.Printf("Telegram API error (%d): %s", status, data)
	} else {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// decodeBody parses the Bot API parameters. A missing body is sent as {}.
func decodeBody(raw json.RawMessage) (map[string]interface{}, error) {
	body := map[string]interface{}{}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return body, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}
	return body, nil
}

// forward sends the call upstream and returns the provider status and body
func (h *Handler) forward(ctx context.Context, token, method string, body map[string]interface{}) (int, []byte, error) {
	payload, contentType, err := encodeBody(body)
	if err != nil {
		return 0, nil, err
	}

	url := fmt.Sprintf("%s/bot%s/%s", h.apiBase, token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read telegram response: %w", err)
	}
	if !json.Valid(data) {
		return 0, nil, fmt.Errorf("telegram returned non-JSON response (status %d)", resp.StatusCode)
	}
	return resp.StatusCode, data, nil
}

// encodeBody uploads an embedded data URI photo as multipart/form-data and
// sends everything else as JSON. A malformed data URI falls back to JSON.
func encodeBody(body map[string]interface{}) (io.Reader, string, error) {
	if photo, ok := body["photo"].(string); ok && strings.HasPrefix(photo, "data:") {
		form, contentType, err := multipartBody(photo, body)
		if err == nil {
			return form, contentType, nil
		}
		log.Printf("Error processing Base64 photo, sending as JSON: %v", err)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

func multipartBody(photo string, body map[string]interface{}) (io.Reader, string, error) {
	mimeType, data, ok := telegram.ParseDataURI(photo)
	if !ok {
		return nil, "", fmt.Errorf("invalid Base64 string")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, telegram.PhotoFilename(mimeType)))
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	for key, value := range body {
		if key == "photo" {
			continue
		}
		formValue, err := telegram.FormValue(value)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField(key, formValue); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to write proxy response: %v", err)
	}
}
