package bot

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/market"
	"pricebot/internal/store"
)

// NewBot creates a Telegram bot backed by the given provider and store.
func NewBot(token string, provider market.Provider, st store.Store, defaultCurrency string, topLimit int, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		client:          api,
		tg:              api,
		provider:        provider,
		store:           st,
		logger:          logger,
		defaultCurrency: defaultCurrency,
		topLimit:        topLimit,
		userLocks:       make(map[int64]*sync.Mutex),
		lastRender:      make(map[renderKey]string),
	}, nil
}
