package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// DefaultButtonLabel is shown on the inline link button when none is given
const DefaultButtonLabel = "🔗 Mở liên kết"

// Message is one outbound channel post
type Message struct {
	Content     string `json:"content"`
	ImageLink   string `json:"imageLink,omitempty"`
	ButtonLink  string `json:"buttonLink,omitempty"`
	ButtonLabel string `json:"buttonLabel,omitempty"`
}

// Dispatcher formats messages for the Bot API and hands them to a Transport
type Dispatcher struct {
	transport Transport
	botToken  string
	chatID    string
}

// NewDispatcher creates a dispatcher posting to chatID. Without a bot
// token or chat id every send is a logged no-op.
func NewDispatcher(transport Transport, botToken, chatID string) *Dispatcher {
	return &Dispatcher{transport: transport, botToken: botToken, chatID: chatID}
}

// Enabled reports whether sends can reach Telegram
func (d *Dispatcher) Enabled() bool {
	return d.transport != nil && d.botToken != "" && d.chatID != ""
}

// Send posts msg and reports whether Telegram accepted it
func (d *Dispatcher) Send(ctx context.Context, msg Message) bool {
	if !d.Enabled() {
		log.Println("Telegram configuration is missing, message not sent")
		return false
	}

	method, params := d.request(msg)
	if _, err := d.transport.Call(ctx, method, params); err != nil {
		log.Printf("Error sending Telegram %s: %v", method, err)
		return false
	}
	return true
}

// SendText posts a plain HTML text message
func (d *Dispatcher) SendText(ctx context.Context, text string) bool {
	return d.Send(ctx, Message{Content: text})
}

// request picks sendPhoto or sendMessage and builds the call parameters
func (d *Dispatcher) request(msg Message) (string, map[string]interface{}) {
	params := map[string]interface{}{
		"chat_id":    d.chatID,
		"parse_mode": tgbotapi.ModeHTML,
	}

	method := "sendMessage"
	content := Sanitize(msg.Content)
	if msg.ImageLink != "" {
		method = "sendPhoto"
		params["photo"] = msg.ImageLink
		params["caption"] = content
	} else {
		params["text"] = content
	}

	if msg.ButtonLink != "" {
		label := msg.ButtonLabel
		if label == "" {
			label = DefaultButtonLabel
		}
		params["reply_markup"] = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, msg.ButtonLink)),
		)
	}
	return method, params
}
