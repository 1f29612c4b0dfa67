package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/market"
	"pricebot/internal/models"
	"pricebot/internal/store"
)

const helpText = `Crypto Price Bot commands:

/start - Open the main menu
/price <coin> [currency] - Current price, e.g. /price bitcoin eur
/chart <coin> [days] - Price chart, e.g. /chart bitcoin 30
/alert <coin> <above|below> <price> - Set a price alert
/alert - Show your current alert
/alert off - Remove your alert
/help - This message

You can have one active alert at a time; setting a new one replaces it.`

const alertUsageText = `Usage:
/alert <coin> <above|below> <price> - e.g. /alert bitcoin above 30000
/alert - show your current alert
/alert off - remove your alert`

// handleStart resets the conversation and shows the main menu.
func (b *Bot) handleStart(message *tgbotapi.Message) {
	ctx, cancel := providerContext()
	defer cancel()

	b.resetSession(ctx, message.From.ID)
	b.sendMenu(message.Chat.ID, welcomeText, mainMenuKeyboard())
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.sendMessage(message.Chat.ID, helpText)
}

// handlePrice serves /price <coin> [currency] as a direct detail lookup
// without touching the menu state.
func (b *Bot) handlePrice(message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 || len(args) > 2 {
		b.sendMessage(message.Chat.ID, "Usage: /price <coin> [currency]\n\nExample: /price bitcoin eur")
		return
	}

	coinID := strings.ToLower(args[0])
	ctx, cancel := providerContext()
	defer cancel()

	currency := b.session(ctx, message.From.ID).Currency
	if len(args) == 2 {
		currency = strings.ToLower(args[1])
	}

	placeholder := b.sendMessage(message.Chat.ID, fetchingText)

	detail, err := b.provider.CoinDetail(ctx, coinID, currency)
	if errors.Is(err, market.ErrNotFound) {
		b.editRender(message.Chat.ID, placeholder.MessageID, fmt.Sprintf("No results for %q.", coinID), nil)
		return
	}
	if err != nil {
		b.logger.Warn("Price lookup failed", zap.Error(err), zap.String("coin", coinID))
		b.editRender(message.Chat.ID, placeholder.MessageID, unavailableText, nil)
		return
	}

	b.editRender(message.Chat.ID, placeholder.MessageID, formatDetail(detail, currency), nil)
}

// handleChart serves /chart <coin> [days] as a text sparkline of the
// historical price series.
func (b *Bot) handleChart(message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	if len(args) == 0 || len(args) > 2 {
		b.sendMessage(message.Chat.ID, "Usage: /chart <coin> [days]\n\nExample: /chart bitcoin 30")
		return
	}

	coinID := strings.ToLower(args[0])
	days := 7
	if len(args) == 2 {
		parsed, err := strconv.Atoi(args[1])
		if err != nil || parsed < 1 || parsed > 365 {
			b.sendMessage(message.Chat.ID, "Days must be a number between 1 and 365.")
			return
		}
		days = parsed
	}

	ctx, cancel := providerContext()
	defer cancel()

	currency := b.session(ctx, message.From.ID).Currency
	placeholder := b.sendMessage(message.Chat.ID, fetchingText)

	points, err := b.provider.HistoricalPrices(ctx, coinID, currency, days)
	if errors.Is(err, market.ErrNotFound) || (err == nil && len(points) == 0) {
		b.editRender(message.Chat.ID, placeholder.MessageID, fmt.Sprintf("No chart data found for %q.", coinID), nil)
		return
	}
	if err != nil {
		b.logger.Warn("Chart fetch failed", zap.Error(err), zap.String("coin", coinID))
		b.editRender(message.Chat.ID, placeholder.MessageID, unavailableText, nil)
		return
	}

	b.editRender(message.Chat.ID, placeholder.MessageID, formatChart(coinID, currency, days, points), nil)
}

// handleAlert serves the /alert command family: set, show, remove.
func (b *Bot) handleAlert(message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	ctx, cancel := providerContext()
	defer cancel()

	userID := message.From.ID

	switch len(args) {
	case 0:
		b.showAlert(ctx, message.Chat.ID, userID)
	case 1:
		if strings.EqualFold(args[0], "off") {
			b.removeAlert(ctx, message.Chat.ID, userID)
			return
		}
		b.sendMessage(message.Chat.ID, alertUsageText)
	case 3:
		b.setAlert(ctx, message.Chat.ID, userID, args)
	default:
		b.sendMessage(message.Chat.ID, alertUsageText)
	}
}

func (b *Bot) showAlert(ctx context.Context, chatID, userID int64) {
	alert, err := b.store.GetAlert(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		b.sendMessage(chatID, "You have no active alert.\n\n"+alertUsageText)
		return
	}
	if err != nil {
		b.logger.Error("Failed to load alert", zap.Error(err), zap.Int64("user_id", userID))
		b.sendMessage(chatID, unavailableText)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Your active alert: %s %s %s",
		alert.CoinID, alert.Direction, formatPrice(alert.Threshold)))
}

func (b *Bot) removeAlert(ctx context.Context, chatID, userID int64) {
	if err := b.store.DeleteAlert(ctx, userID); err != nil {
		b.logger.Error("Failed to delete alert", zap.Error(err), zap.Int64("user_id", userID))
		b.sendMessage(chatID, unavailableText)
		return
	}
	b.sendMessage(chatID, "Alert removed.")
}

func (b *Bot) setAlert(ctx context.Context, chatID, userID int64, args []string) {
	coinID := strings.ToLower(args[0])

	var direction models.Direction
	switch strings.ToLower(args[1]) {
	case "above":
		direction = models.DirectionAbove
	case "below":
		direction = models.DirectionBelow
	default:
		b.sendMessage(chatID, alertUsageText)
		return
	}

	threshold, err := strconv.ParseFloat(args[2], 64)
	if err != nil || threshold <= 0 {
		b.sendMessage(chatID, "Price must be a positive number.\n\n"+alertUsageText)
		return
	}

	alert := &models.Alert{
		UserID:    userID,
		CoinID:    coinID,
		Threshold: threshold,
		Direction: direction,
		CreatedAt: time.Now(),
	}
	if err := b.store.SetAlert(ctx, alert); err != nil {
		b.logger.Error("Failed to save alert", zap.Error(err), zap.Int64("user_id", userID))
		b.sendMessage(chatID, unavailableText)
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Alert set: %s %s %s. It replaces any previous alert.",
		coinID, direction, formatPrice(threshold)))
}

// NotifyAlert delivers an alert notification to a user. Chat id equals user
// id for private chats, which is where alerts are set.
func (b *Bot) NotifyAlert(userID int64, text string) error {
	if b.tg == nil {
		return nil
	}
	_, err := b.tg.Send(tgbotapi.NewMessage(userID, text))
	return err
}
