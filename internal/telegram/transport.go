package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Transport performs one Bot API call and returns its result on success
type Transport interface {
	Call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error)
}

// APIError is a rejection reported by the Bot API or the proxy in front of it
type APIError struct {
	Status      int
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("telegram api error (status %d): %s", e.Status, e.Description)
}

// apiResponse is the envelope of every Bot API reply
type apiResponse struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
	Error       string          `json:"error,omitempty"`
}

var dataURIPattern = regexp.MustCompile(`^data:([A-Za-z-+/]+);base64,(.+)$`)

// ParseDataURI decodes a base64 data URI. ok is false for anything else,
// including malformed base64.
func ParseDataURI(s string) (mimeType string, data []byte, ok bool) {
	m := dataURIPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, false
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", nil, false
	}
	return m[1], data, true
}

// PhotoFilename names an uploaded photo after its MIME subtype
func PhotoFilename(mimeType string) string {
	_, subtype, _ := strings.Cut(mimeType, "/")
	if subtype == "" {
		subtype = "jpg"
	}
	return "image." + subtype
}

// FormValue renders a parameter as a multipart/form field value; objects
// are JSON-encoded.
func FormValue(v interface{}) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	case json.Number:
		return value.String(), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
