package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProxyTransport sends calls through the /api/telegram proxy endpoint
type ProxyTransport struct {
	url      string
	botToken string
	client   *http.Client
}

// NewProxyTransport creates a transport posting to url. botToken may be
// empty when the proxy holds its own token.
func NewProxyTransport(url, botToken string, client *http.Client) *ProxyTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProxyTransport{url: url, botToken: botToken, client: client}
}

type proxyRequest struct {
	BotToken string                 `json:"botToken,omitempty"`
	Method   string                 `json:"method"`
	Body     map[string]interface{} `json:"body"`
}

func (t *ProxyTransport) Call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(proxyRequest{BotToken: t.botToken, Method: method, Body: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Description: "non-JSON proxy response"}
	}
	if resp.StatusCode != http.StatusOK || !result.Ok {
		description := result.Description
		if description == "" {
			description = result.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Code: result.ErrorCode, Description: description}
	}
	return result.Result, nil
}
