package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pricebot/internal/alert"
	"pricebot/internal/bot"
	"pricebot/internal/config"
	"pricebot/internal/market/coingecko"
	"pricebot/internal/metrics"
	"pricebot/internal/store"
	"pricebot/internal/store/memory"
	"pricebot/internal/store/redisstore"
)

// App wires the bot, the alert checker and the HTTP server together.
type App struct {
	config  *config.Config
	logger  *zap.Logger
	store   store.Store
	bot     *bot.Bot
	checker *alert.Checker
	server  *http.Server
}

// New creates and initializes a new application instance.
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting Crypto Price Bot...")

	if err := app.initStore(); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initHTTPServer()

	return app, nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initStore selects the session/alert store backend.
func (a *App) initStore() error {
	switch a.config.StoreBackend {
	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := redisstore.New(ctx, a.config.RedisAddr, a.config.RedisPassword, a.config.RedisDB, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize redis store: %w", err)
		}
		a.store = st
	default:
		a.logger.Info("Using in-memory store; state is process-lifetime only")
		a.store = memory.New()
	}
	return nil
}

// initBot initializes the Telegram bot and the alert checker.
func (a *App) initBot() error {
	provider := coingecko.NewClient(a.config.CoinGeckoBaseURL, a.logger)

	telegramBot, err := bot.NewBot(
		a.config.TelegramToken,
		provider,
		a.store,
		a.config.DefaultCurrency,
		a.config.TopCoinsLimit,
		a.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.bot = telegramBot

	a.checker = alert.NewChecker(
		a.store,
		provider,
		telegramBot,
		a.config.AlertCheckInterval,
		a.config.DefaultCurrency,
		a.config.AlertOneShot,
		a.logger,
	)
	return nil
}

// initHTTPServer initializes the HTTP server for health checks, metrics
// and webhook delivery.
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "Crypto Price Bot is running (mode: %s)", mode)
	})

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go a.bot.HandleUpdate(update)

		w.WriteHeader(http.StatusOK)
	})

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := a.checker.Start(); err != nil {
		return fmt.Errorf("failed to start alert checker: %w", err)
	}

	if a.config.WebhookMode {
		a.logger.Info("Starting bot in webhook mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		go func() {
			a.logger.Info("Starting bot in polling mode")
			if err := a.bot.Start(); err != nil {
				a.logger.Fatal("Failed to start bot", zap.Error(err))
			}
		}()
	}

	<-sigChan

	a.logger.Info("Shutting down...")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.checker.Stop()
	a.bot.StopPolling()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("Error closing store", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
