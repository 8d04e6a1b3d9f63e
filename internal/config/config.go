// Package config reads bot settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultStaffChatID is the staff forum of the DungeonKeeper community
	DefaultStaffChatID int64 = -1001410225154

	// DevSessionSecret is used when SESSION_SECRET is unset. Change it in production!
	DevSessionSecret = "dev-secret-change-in-production"
)

type Config struct {
	BotToken    string
	StaffChatID int64

	ContentPath   string
	SweepInterval time.Duration
	JournalPath   string

	HTTPAddr      string
	PublicURL     string
	SessionSecret string

	SendRate  float64
	SendBurst int

	LogLevel string
	NoColor  bool
}

// Load reads envFile (ignored when missing) and then the process environment
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	cfg := &Config{
		BotToken:      firstEnv("TELEGRAM_BOT_TOKEN", "BOT_TOKEN", ""),
		ContentPath:   getEnv("CONTENT_PATH", "data/content.yaml"),
		JournalPath:   os.Getenv("JOURNAL_PATH"),
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		PublicURL:     strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/"),
		SessionSecret: getEnv("SESSION_SECRET", DevSessionSecret),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		NoColor:       os.Getenv("NO_COLOR") != "",
	}

	var err error
	if cfg.StaffChatID, err = strconv.ParseInt(getEnv("STAFF_CHAT_ID", strconv.FormatInt(DefaultStaffChatID, 10)), 10, 64); err != nil {
		return nil, fmt.Errorf("config: STAFF_CHAT_ID: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(getEnv("SWEEP_INTERVAL", "1m")); err != nil {
		return nil, fmt.Errorf("config: SWEEP_INTERVAL: %w", err)
	}
	if cfg.SendRate, err = strconv.ParseFloat(getEnv("SEND_RATE", "25"), 64); err != nil {
		return nil, fmt.Errorf("config: SEND_RATE: %w", err)
	}
	if cfg.SendBurst, err = strconv.Atoi(getEnv("SEND_BURST", "5")); err != nil {
		return nil, fmt.Errorf("config: SEND_BURST: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("config: TELEGRAM_BOT_TOKEN (or BOT_TOKEN) is required")
	}
	if c.StaffChatID == 0 {
		return errors.New("config: STAFF_CHAT_ID must not be zero")
	}
	if c.SweepInterval < time.Second {
		return errors.New("config: SWEEP_INTERVAL must be at least 1s")
	}
	if c.SendRate <= 0 || c.SendBurst < 1 {
		return errors.New("config: SEND_RATE must be positive and SEND_BURST at least 1")
	}
	return nil
}

// DashboardEnabled reports whether the staff web dashboard should be served
func (c *Config) DashboardEnabled() bool {
	return c.HTTPAddr != ""
}

// UsesDevSecret reports whether the session secret was left at its default
func (c *Config) UsesDevSecret() bool {
	return c.SessionSecret == DevSessionSecret
}

func firstEnv(keysAndDef ...string) string {
	if len(keysAndDef) == 0 {
		return ""
	}
	def := keysAndDef[len(keysAndDef)-1]
	for _, k := range keysAndDef[:len(keysAndDef)-1] {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envOr is like getEnv but keeps an explicitly empty value
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
