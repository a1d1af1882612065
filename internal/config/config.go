package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config keeps runtime settings for the server.
type Config struct {
	DatabaseURL   string
	ListenAddr    string
	SessionTTL    time.Duration
	AdminName     string
	AdminPassword string
	TelegramToken string // optional; empty disables digest delivery
	DigestTime    string // HH:MM, local time
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ListenAddr:    strings.TrimSpace(os.Getenv("LISTEN_ADDR")),
		SessionTTL:    parseTTL(strings.TrimSpace(os.Getenv("SESSION_TTL_HOURS"))),
		AdminName:     strings.TrimSpace(os.Getenv("ADMIN_NAME")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DigestTime:    strings.TrimSpace(os.Getenv("DIGEST_TIME")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "taskboard.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.DigestTime == "" {
		cfg.DigestTime = "08:00"
	}
	if cfg.AdminName == "" {
		cfg.AdminName = "admin"
	}

	if cfg.AdminPassword == "" {
		return cfg, fmt.Errorf("ADMIN_PASSWORD is required")
	}

	return cfg, nil
}

func parseTTL(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
