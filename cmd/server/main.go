package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"offerdesk/internal/auth"
	"offerdesk/internal/config"
	"offerdesk/internal/database"
	"offerdesk/internal/handlers"
	"offerdesk/internal/proxy"
	"offerdesk/internal/repository"
	"offerdesk/internal/security"
	"offerdesk/internal/service"
	"offerdesk/internal/sheets"
	"offerdesk/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Fatal("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required to sign in to the dashboard")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", db.Dialect.Name())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Session slot
	sealer := security.NewSealer(cfg.SessionSecret)
	if !sealer.Enabled() {
		log.Println("Warning: SESSION_SECRET not set, the stored session is not encrypted")
	}
	manager := auth.NewManager(auth.Options{
		OAuth:           auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
		Store:           repository.NewSessionRepository(db, sealer),
		RefreshInterval: cfg.TokenRefreshInterval,
		OfflineAccess:   cfg.OfflineAccess,
	})
	if err := manager.Initialize(ctx); err != nil {
		log.Printf("Warning: starting signed out: %v", err)
	}
	go manager.Run(ctx)

	// Spreadsheet
	store, err := sheets.NewSheetsStore(ctx, cfg.SpreadsheetID, sheetsOptions(cfg, manager)...)
	if err != nil {
		log.Fatalf("Failed to create Sheets client: %v", err)
	}
	gateway := sheets.NewGateway(store, sheets.SheetNames{
		Offers:   cfg.OffersSheet,
		Schedule: cfg.ScheduleSheet,
		Config:   cfg.ConfigSheet,
	}, manager.HandleUnauthorized)

	// Telegram
	dispatcher := telegram.NewDispatcher(newTransport(cfg), cfg.TelegramBotToken, cfg.TelegramChatID)
	alerts, err := service.NewAlertService(telegram.NewNotifier(dispatcher, cfg.Location), cfg.AWSRegion, cfg.SESFromEmail, cfg.AlertEmail)
	if err != nil {
		log.Fatalf("Failed to initialize alert service: %v", err)
	}
	sessionEvents, stopWatching := manager.Subscribe()
	defer stopWatching()
	go service.WatchSession(ctx, sessionEvents, alerts)

	// Handlers
	hub := handlers.NewEventHub()
	events, unsubscribe := manager.Subscribe()
	defer unsubscribe()
	go hub.Run(ctx, events)

	router := handlers.Router{
		Auth: handlers.NewAuthHandler(manager, cfg.OAuthRedirectBaseURL),
		API: handlers.NewAPIHandler(
			service.NewOfferService(gateway, alerts),
			service.NewContentService(gateway, dispatcher, alerts),
			service.NewConfigService(gateway),
			service.NewDashboardService(gateway),
		),
		Events:     hub,
		Middleware: handlers.NewMiddleware(manager),
		Proxy: proxy.New(proxy.Config{
			BotToken:       cfg.TelegramBotToken,
			APIBase:        cfg.TelegramAPIBase,
			RateLimit:      cfg.ProxyRateLimit,
			TrustForwarded: cfg.TrustProxyHeaders,
		}),
	}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// sheetsOptions authenticates the Sheets client with the service account
// when one is configured, otherwise with the signed-in user's token
func sheetsOptions(cfg *config.Config, manager *auth.Manager) []option.ClientOption {
	if cfg.GoogleCredentials != "" {
		log.Println("Sheets access uses the configured service account")
		return []option.ClientOption{
			option.WithCredentialsJSON([]byte(cfg.GoogleCredentials)),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		}
	}
	return []option.ClientOption{option.WithTokenSource(manager.TokenSource())}
}

func newTransport(cfg *config.Config) telegram.Transport {
	client := &http.Client{Timeout: 30 * time.Second}
	if cfg.TelegramTransport == config.TransportDirect {
		log.Printf("Telegram messages are sent directly to %s", cfg.TelegramAPIBase)
		return telegram.NewDirectTransport(cfg.TelegramBotToken, cfg.TelegramAPIBase, client)
	}
	log.Printf("Telegram messages are relayed through %s", cfg.TelegramProxyURL)
	return telegram.NewProxyTransport(cfg.TelegramProxyURL, cfg.TelegramBotToken, client)
}
