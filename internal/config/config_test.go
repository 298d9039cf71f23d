package config

import (
	"strings"
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("WEBAPP_URL", "")
	t.Setenv("WEBHOOK_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setBase(t)
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.SessionTTL != 30*time.Minute {
			t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
		}
		if cfg.WebhookMode() {
			t.Error("long-poll expected without webhook settings")
		}
	})

	t.Run("Missing Token", func(t *testing.T) {
		setBase(t)
		t.Setenv("BOT_TOKEN", "")
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BOT_TOKEN") {
			t.Errorf("expected BOT_TOKEN error, got %v", err)
		}
	})

	t.Run("Webhook Mode", func(t *testing.T) {
		setBase(t)
		t.Setenv("WEBHOOK_URL", "https://bot.example.com")
		t.Setenv("PORT", "8443")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if !cfg.WebhookMode() {
			t.Error("webhook mode expected when URL and port are set")
		}
	})

	t.Run("Webhook URL Without Port", func(t *testing.T) {
		setBase(t)
		t.Setenv("WEBHOOK_URL", "https://bot.example.com")
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "PORT") {
			t.Errorf("expected PORT error, got %v", err)
		}
	})

	t.Run("Session TTL Override", func(t *testing.T) {
		setBase(t)
		t.Setenv("SESSION_TTL", "5m")
		cfg, err := Load()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.SessionTTL != 5*time.Minute {
			t.Errorf("SessionTTL = %v, want 5m", cfg.SessionTTL)
		}
	})
}
