package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/models"
)

const providerTimeout = 10 * time.Second

func providerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), providerTimeout)
}

// handleCallbackQuery processes inline keyboard button presses. Payloads are
// parsed once into a ButtonAction and matched against the transition table;
// actions that are not valid for the user's current stage leave the stage
// unchanged.
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	if query.Message == nil {
		return
	}

	userID := query.From.ID
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	// Answer the callback query to remove the client-side loading state.
	if b.tg != nil {
		b.tg.Request(tgbotapi.NewCallback(query.ID, ""))
	}

	mu := b.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := providerContext()
	defer cancel()

	state := b.session(ctx, userID)
	action := ParseAction(query.Data)

	switch action.Kind {
	case ActionMainMenu, ActionQuit:
		// Valid from any stage.
		state.Stage = models.StageMainMenu
		state.SelectedCoin = ""
		b.saveSession(ctx, userID, state)
		kb := mainMenuKeyboard()
		b.editRender(chatID, messageID, welcomeText, &kb)

	case ActionTop:
		if state.Stage != models.StageMainMenu {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		b.showCoinList(ctx, chatID, messageID, userID, state, func() ([]models.Coin, error) {
			return b.provider.TopCoins(ctx, state.Currency, b.topLimit)
		})

	case ActionTrending:
		if state.Stage != models.StageMainMenu {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		b.showCoinList(ctx, chatID, messageID, userID, state, func() ([]models.Coin, error) {
			return b.provider.TrendingCoins(ctx)
		})

	case ActionSearch:
		if state.Stage != models.StageMainMenu {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		state.Stage = models.StageTypingSearch
		b.saveSession(ctx, userID, state)
		b.editRender(chatID, messageID, searchPromptText, nil)

	case ActionSelectCoin:
		if state.Stage != models.StageChoosingCoin {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		state.SelectedCoin = action.CoinID
		state.Stage = models.StageChoosingCurrency
		b.saveSession(ctx, userID, state)
		kb := currencyKeyboard()
		b.editRender(chatID, messageID, chooseCurrencyText, &kb)

	case ActionSelectCurrency:
		if state.Stage != models.StageChoosingCurrency {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		b.showCoinDetail(ctx, chatID, messageID, userID, state, action.Currency)

	case ActionCompare:
		if state.Stage != models.StageCompareSelection {
			b.editRender(chatID, messageID, unknownActionText, nil)
			return
		}
		b.showCoinList(ctx, chatID, messageID, userID, state, func() ([]models.Coin, error) {
			return b.provider.TopCoins(ctx, state.Currency, b.topLimit)
		})

	default:
		b.logger.Warn("Unknown callback payload",
			zap.String("payload", query.Data),
			zap.Int64("user_id", userID),
		)
		b.editRender(chatID, messageID, unknownActionText, nil)
	}
}

// showCoinList fetches a coin list and moves the user to coin selection.
// On a provider failure the stage is left as it was and the menu stays
// navigable.
func (b *Bot) showCoinList(ctx context.Context, chatID int64, messageID int, userID int64, state *models.ConversationState, fetch func() ([]models.Coin, error)) {
	b.editRender(chatID, messageID, fetchingText, nil)

	coins, err := fetch()
	if err != nil || len(coins) == 0 {
		if err != nil {
			b.logger.Warn("Coin list fetch failed", zap.Error(err), zap.Int64("user_id", userID))
		}
		kb := mainMenuKeyboard()
		b.editRender(chatID, messageID, unavailableText, &kb)
		return
	}

	state.Stage = models.StageChoosingCoin
	b.saveSession(ctx, userID, state)
	kb := coinListKeyboard(coins)
	b.editRender(chatID, messageID, chooseCoinText, &kb)
}

// showCoinDetail fetches and renders the detail view for the user's
// selected coin in the chosen currency.
func (b *Bot) showCoinDetail(ctx context.Context, chatID int64, messageID int, userID int64, state *models.ConversationState, currency string) {
	b.editRender(chatID, messageID, fetchingText, nil)

	detail, err := b.provider.CoinDetail(ctx, state.SelectedCoin, currency)
	if err != nil {
		b.logger.Warn("Coin detail fetch failed",
			zap.Error(err),
			zap.String("coin", state.SelectedCoin),
			zap.String("currency", currency),
		)
		kb := currencyKeyboard()
		b.editRender(chatID, messageID, unavailableText, &kb)
		return
	}

	state.Currency = currency
	state.Stage = models.StageCompareSelection
	b.saveSession(ctx, userID, state)

	kb := detailKeyboard()
	b.editRender(chatID, messageID, formatDetail(detail, currency), &kb)
}
