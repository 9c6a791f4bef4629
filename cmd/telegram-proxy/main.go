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

	"offerdesk/internal/config"
	"offerdesk/internal/handlers"
	"offerdesk/internal/proxy"
)

func main() {
	cfg, err := config.LoadProxy()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/telegram", proxy.New(proxy.Config{
		BotToken:       cfg.TelegramBotToken,
		APIBase:        cfg.TelegramAPIBase,
		RateLimit:      cfg.ProxyRateLimit,
		TrustForwarded: cfg.TrustProxyHeaders,
	}))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Telegram proxy listening on http://localhost%s/api/telegram", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Telegram proxy shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
