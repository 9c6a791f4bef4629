package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DirectTransport calls the Bot API in-process with the bot token
type DirectTransport struct {
	token    string
	endpoint string
	client   tgbotapi.HTTPClient

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewDirectTransport creates a transport against apiBase (for example
// https://api.telegram.org).
func NewDirectTransport(token, apiBase string, client *http.Client) *DirectTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &DirectTransport{
		token:    token,
		endpoint: strings.TrimRight(apiBase, "/") + "/bot%s/%s",
		client:   client,
	}
}

// botAPI connects on first use; a failed connect is retried on the next call
func (t *DirectTransport) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect Telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

func (t *DirectTransport) Call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bot, err := t.botAPI()
	if err != nil {
		return nil, err
	}

	values := tgbotapi.Params{}
	var files []tgbotapi.RequestFile
	for key, value := range params {
		if photo, ok := value.(string); ok && key == "photo" {
			if mimeType, data, ok := ParseDataURI(photo); ok {
				files = append(files, tgbotapi.RequestFile{
					Name: "photo",
					Data: tgbotapi.FileBytes{Name: PhotoFilename(mimeType), Bytes: data},
				})
				continue
			}
		}
		formValue, err := FormValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		values[key] = formValue
	}

	var resp *tgbotapi.APIResponse
	if len(files) > 0 {
		resp, err = bot.UploadFiles(method, values, files)
	} else {
		resp, err = bot.MakeRequest(method, values)
	}
	if err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{Code: apiErr.Code, Description: apiErr.Message}
		}
		return nil, err
	}
	return resp.Result, nil
}
