package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/market"
	"pricebot/internal/store"
)

// Sender is the slice of the Telegram API the bot needs for outbound
// delivery. *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram transport and drives the menu state machine.
type Bot struct {
	client   *tgbotapi.BotAPI // nil when running under tests
	tg       Sender
	provider market.Provider
	store    store.Store
	logger   *zap.Logger

	defaultCurrency string
	topLimit        int

	// userLocks serializes handling of one user's events so state
	// read-modify-write never interleaves for the same user.
	userMu    sync.Mutex
	userLocks map[int64]*sync.Mutex

	// lastRender remembers the text last placed on a message so
	// identical re-renders can be skipped.
	renderMu   sync.Mutex
	lastRender map[renderKey]string
}

type renderKey struct {
	chatID    int64
	messageID int
}

// lockUser returns the per-user mutex, creating it on first use.
func (b *Bot) lockUser(userID int64) *sync.Mutex {
	b.userMu.Lock()
	defer b.userMu.Unlock()

	mu, ok := b.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		b.userLocks[userID] = mu
	}
	return mu
}
