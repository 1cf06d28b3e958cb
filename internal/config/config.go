// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the API server reads at startup.
type Config struct {
	Port        string
	DatabaseURL string

	// JWTKey signs access tokens issued after Telegram or PIN login.
	JWTKey    string
	AccessTTL time.Duration

	// TelegramBotToken validates mini-app initData signatures.
	TelegramBotToken string
	// InitDataMaxAge rejects initData older than this window.
	InitDataMaxAge time.Duration

	// PullWindow bounds a first pull (no `since` cursor) to recent history.
	PullWindow time.Duration
	// MaxBatchActions caps a single push batch.
	MaxBatchActions int

	// OutboxInterval is the poll period of the event outbox dispatcher.
	OutboxInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for everything except the database URL and JWT key.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getenv("APP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTKey:           os.Getenv("JWT_KEY"),
		AccessTTL:        getdur("ACCESS_TTL", 24*time.Hour),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		InitDataMaxAge:   getdur("INITDATA_MAX_AGE", 24*time.Hour),
		PullWindow:       getdur("SYNC_PULL_WINDOW", 24*time.Hour),
		MaxBatchActions:  getint("SYNC_MAX_BATCH", 500),
		OutboxInterval:   getdur("OUTBOX_INTERVAL", time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTKey == "" {
		return nil, fmt.Errorf("JWT_KEY is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
