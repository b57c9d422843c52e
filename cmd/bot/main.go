// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"texts-bot/config"
	"texts-bot/internal/api"
	"texts-bot/internal/bot"
	"texts-bot/internal/server"
	"texts-bot/internal/store"
	"texts-bot/internal/subscription"
	"texts-bot/pkg/logger"
)

func main() {
	l := logger.New()
	l.Infow("Starting texts bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatalw("Failed to load config", "error", err)
	}

	if cfg.Telegram.Token == "" {
		l.Fatalw("Telegram bot token is not configured")
	}

	// Load the persisted state; a missing file is initialized, anything
	// unreadable is fatal.
	st, err := store.Open(cfg.Storage.DataFile)
	if err != nil {
		l.Fatalw("Failed to open data file", "error", err, "path", cfg.Storage.DataFile)
	}
	l.Infow("Loaded state", "path", cfg.Storage.DataFile, "users", st.UserCount())

	engine := subscription.NewEngine(st, cfg.Subscription.DurationDays)

	telegramBot, err := bot.New(cfg.Telegram.Token, bot.Options{
		LinkOverride:     cfg.Telegram.LinkOverride,
		ProviderToken:    cfg.Payment.ProviderToken,
		ActivationSecret: cfg.Subscription.ActivationSecret,
		Price:            cfg.Subscription.Price,
		Currency:         cfg.Subscription.Currency,
	}, st, engine, l.With("component", "bot"))
	if err != nil {
		l.Fatalw("Failed to create Telegram bot", "error", err)
	}

	if err := telegramBot.Start(context.Background()); err != nil {
		l.Fatalw("Failed to start Telegram bot", "error", err)
	}

	svc := api.NewService(st, telegramBot.Link(), l.With("component", "api"))

	httpServer := server.NewServer(cfg.Server.Port, svc, l.With("component", "http"))
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Infow("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}
	if err := telegramBot.Stop(ctx); err != nil {
		l.Errorw("Error during bot shutdown", "error", err)
	}

	l.Infow("Stopped")
}
