package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/metricon/labelbot/internal/bot"
	"github.com/metricon/labelbot/internal/config"
	"github.com/metricon/labelbot/internal/encoder"
	"github.com/metricon/labelbot/internal/metrics"
	"github.com/metricon/labelbot/internal/session"
)

const (
	renderWorkers = 4
	renderQueue   = 16
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	sessions := session.NewStore(cfg.SessionTTL)
	defer sessions.Close()

	pool := encoder.NewPool(renderWorkers, renderQueue)
	defer pool.Close()

	mc := metrics.New(metrics.Config{
		ServerURL: cfg.Metricon.URL,
		APIKey:    cfg.Metricon.APIKey,
		BotName:   cfg.Metricon.BotName,
	})
	mc.Start()
	defer mc.Stop()

	b, err := bot.New(cfg, sessions, pool, mc)
	if err != nil {
		slog.Error("Bot init failed", "error", err)
		os.Exit(1)
	}

	if cfg.WebhookMode() {
		slog.Info("Starting in webhook mode", "port", cfg.Port)
	} else {
		slog.Info("Starting in long-poll mode")
	}
	b.Start()
}
