package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds the application configuration.
type Config struct {
	TelegramToken string

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string

	// Menu and market defaults
	DefaultCurrency  string
	TopCoinsLimit    int
	CoinGeckoBaseURL string // empty means the public API

	// Alert checker
	AlertCheckInterval time.Duration
	AlertOneShot       bool

	// Store backend
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Debug bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}

	config.Port = os.Getenv("PORT")
	if config.Port == "" {
		config.Port = "8080"
	}

	config.DefaultCurrency = os.Getenv("DEFAULT_CURRENCY")
	if config.DefaultCurrency == "" {
		config.DefaultCurrency = "usd"
	}

	config.TopCoinsLimit = 10
	if limitStr := os.Getenv("TOP_COINS_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 100 {
			return nil, fmt.Errorf("invalid TOP_COINS_LIMIT: %s", limitStr)
		}
		config.TopCoinsLimit = limit
	}

	config.CoinGeckoBaseURL = os.Getenv("COINGECKO_BASE_URL")

	config.AlertCheckInterval = 60 * time.Second
	if intervalStr := os.Getenv("ALERT_CHECK_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil || interval < time.Second {
			return nil, fmt.Errorf("invalid ALERT_CHECK_INTERVAL: %s", intervalStr)
		}
		config.AlertCheckInterval = interval
	}
	config.AlertOneShot = os.Getenv("ALERT_ONE_SHOT") == "true"

	config.StoreBackend = os.Getenv("STORE_BACKEND")
	if config.StoreBackend == "" {
		config.StoreBackend = StoreMemory
	}
	switch config.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		config.RedisAddr = os.Getenv("REDIS_ADDR")
		if config.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND is redis")
		}
		config.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			db, err := strconv.Atoi(dbStr)
			if err != nil {
				return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
			}
			config.RedisDB = db
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %s (expected %s or %s)", config.StoreBackend, StoreMemory, StoreRedis)
	}

	config.Debug = os.Getenv("BOT_DEBUG") == "true"

	return config, nil
}
