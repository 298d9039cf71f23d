// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration.
type Config struct {
	BotToken   string
	WebAppURL  string
	WebhookURL string
	Port       string
	SessionTTL time.Duration
	Metricon   MetriconConfig
}

// MetriconConfig controls the optional Metricon telemetry client.
// Telemetry is disabled when URL or APIKey are empty.
type MetriconConfig struct {
	URL     string
	APIKey  string
	BotName string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		WebAppURL:  getEnv("WEBAPP_URL", ""),
		WebhookURL: getEnv("WEBHOOK_URL", ""),
		Port:       getEnv("PORT", ""),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
		Metricon: MetriconConfig{
			URL:     getEnv("METRICON_URL", ""),
			APIKey:  getEnv("METRICON_API_KEY", ""),
			BotName: getEnv("METRICON_BOT_NAME", "labelbot"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.WebhookURL != "" && c.Port == "" {
		return fmt.Errorf("WEBHOOK_URL is set but PORT is empty")
	}
	return nil
}

// WebhookMode reports whether the bot should receive updates over a
// webhook instead of long-polling. Both a public URL and a listen port
// are required.
func (c *Config) WebhookMode() bool {
	return c.WebhookURL != "" && c.Port != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
