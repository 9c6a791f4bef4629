package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Telegram transport modes
const (
	TransportProxy  = "proxy"
	TransportDirect = "direct"
)

// Config holds application configuration
type Config struct {
	ServerPort string

	// Google
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleCredentials    string
	OAuthRedirectBaseURL string
	OfflineAccess        bool
	SpreadsheetID        string
	OffersSheet          string
	ScheduleSheet        string
	ConfigSheet          string

	// Telegram
	TelegramBotToken  string
	TelegramChatID    string
	TelegramTransport string
	TelegramProxyURL  string
	TelegramAPIBase   string
	ProxyRateLimit    int
	TrustProxyHeaders bool

	// Session slot storage
	DatabaseType         string
	DatabasePath         string
	DatabaseURL          string
	MigrationsPath       string
	SessionSecret        string
	TokenRefreshInterval time.Duration

	// Alerts
	AWSRegion    string
	SESFromEmail string
	AlertEmail   string

	Location *time.Location
}

// Load reads configuration from a .env file (when present) and environment
// variables with sensible defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	port := getEnv("PORT", "8080")
	cfg := &Config{
		ServerPort:           port,
		GoogleClientID:       getEnvFallback("GOOGLE_CLIENT_ID", "VITE_GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCredentials:    os.Getenv("GOOGLE_CREDENTIALS"),
		OAuthRedirectBaseURL: os.Getenv("OAUTH_REDIRECT_BASE_URL"),
		OfflineAccess:        true,
		SpreadsheetID:        getEnvFallback("SPREADSHEET_ID", "VITE_SPREADSHEET_ID"),
		OffersSheet:          getEnv("SHEET_OFFERS", "Offers"),
		ScheduleSheet:        getEnv("SHEET_SCHEDULE", "Schedule"),
		ConfigSheet:          getEnv("SHEET_CONFIG", "Config"),
		TelegramBotToken:     getEnvFallback("TELEGRAM_BOT_TOKEN", "VITE_TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       getEnvFallback("TELEGRAM_CHAT_ID", "VITE_TELEGRAM_CHAT_ID"),
		TelegramTransport:    strings.ToLower(getEnv("TELEGRAM_TRANSPORT", TransportProxy)),
		TelegramProxyURL:     getEnv("TELEGRAM_PROXY_URL", "http://localhost:"+port+"/api/telegram"),
		TelegramAPIBase:      strings.TrimRight(getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"), "/"),
		ProxyRateLimit:       60,
		DatabaseType:         getEnv("DB_TYPE", "sqlite"),
		DatabasePath:         getEnv("DB_PATH", "./offerdesk.db"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MigrationsPath:       getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		TokenRefreshInterval: 5 * time.Minute,
		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:         os.Getenv("SES_FROM_EMAIL"),
		AlertEmail:           os.Getenv("ALERT_EMAIL"),
		Location:             time.Local,
	}

	var missing, invalid []string

	if cfg.SpreadsheetID == "" {
		missing = append(missing, "SPREADSHEET_ID")
	}
	if cfg.GoogleCredentials == "" && (cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "") {
		missing = append(missing, "GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET")
	}

	if value := strings.TrimSpace(os.Getenv("GOOGLE_OFFLINE_ACCESS")); value != "" {
		offline, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, "GOOGLE_OFFLINE_ACCESS")
		} else {
			cfg.OfflineAccess = offline
		}
	}

	if trust, ok := parseBool("TRUST_PROXY_HEADERS", &invalid); ok {
		cfg.TrustProxyHeaders = trust
	}

	switch cfg.TelegramTransport {
	case TransportProxy, TransportDirect:
	default:
		invalid = append(invalid, "TELEGRAM_TRANSPORT")
	}

	if value := strings.TrimSpace(os.Getenv("PROXY_RATE_LIMIT")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "PROXY_RATE_LIMIT")
		} else {
			cfg.ProxyRateLimit = limit
		}
	}

	if value := strings.TrimSpace(os.Getenv("TOKEN_REFRESH_INTERVAL")); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "TOKEN_REFRESH_INTERVAL")
		} else {
			cfg.TokenRefreshInterval = interval
		}
	}

	if name := strings.TrimSpace(os.Getenv("TIMEZONE")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			invalid = append(invalid, "TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID not set, messaging is disabled")
	}

	return cfg, nil
}

// MessagingEnabled reports whether both bot token and chat id are configured
func (c *Config) MessagingEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFallback reads key, then the legacy name used by the old frontend build
func getEnvFallback(key, legacyKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return os.Getenv(legacyKey)
}

// parseBool reads an optional boolean variable, recording key in invalid
// when it does not parse. ok is false when the variable is unset or invalid.
func parseBool(key string, invalid *[]string) (value, ok bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		*invalid = append(*invalid, key)
		return false, false
	}
	return value, true
}

// ProxyConfig is the subset used by the standalone Bot API relay
type ProxyConfig struct {
	ServerPort        string
	TelegramBotToken  string
	TelegramAPIBase   string
	ProxyRateLimit    int
	TrustProxyHeaders bool
}

// LoadProxy reads the relay settings. A missing bot token is not an error
// here: the relay answers 500 until one is configured or supplied per call.
func LoadProxy() (*ProxyConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	cfg := &ProxyConfig{
		ServerPort:       getEnv("PORT", "8081"),
		TelegramBotToken: getEnvFallback("TELEGRAM_BOT_TOKEN", "VITE_TELEGRAM_BOT_TOKEN"),
		TelegramAPIBase:  strings.TrimRight(getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"), "/"),
		ProxyRateLimit:   60,
	}

	if value := strings.TrimSpace(os.Getenv("PROXY_RATE_LIMIT")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid environment variables: PROXY_RATE_LIMIT")
		}
		cfg.ProxyRateLimit = limit
	}

	var invalid []string
	if trust, ok := parseBool("TRUST_PROXY_HEADERS", &invalid); ok {
		cfg.TrustProxyHeaders = trust
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, calls must supply botToken")
	}
	return cfg, nil
}
