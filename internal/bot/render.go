package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/metrics"
	"pricebot/internal/models"
)

const welcomeText = `Welcome to Crypto Price Bot! 🪙

Pick an option below, or use commands:
/price <coin> [currency] - Current price of a coin
/chart <coin> [days] - Price chart for the last days
/alert <coin> <above|below> <price> - Set a price alert
/help - Show detailed help`

const (
	fetchingText       = "⏳ Fetching data, please wait..."
	unavailableText    = "Unable to retrieve data right now. Please try again later."
	searchNotFoundText = "Couldn't find any cryptocurrency matching your search."
	searchPromptText   = "🔍 Type the name or symbol of a cryptocurrency:"
	chooseCoinText     = "🪙 Select a cryptocurrency:"
	chooseCurrencyText = "💱 Select a currency:"
	unknownActionText  = "Unknown action. Use /start to open the menu."
)

var currencyCodes = []string{"usd", "eur", "gbp", "btc", "eth"}

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 Top 10", payloadTop),
			tgbotapi.NewInlineKeyboardButtonData("🔥 Trending", payloadTrending),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Search", payloadSearch),
		),
	)
}

// coinListKeyboard lays out coin buttons in two columns with a main menu
// row at the bottom.
func coinListKeyboard(coins []models.Coin) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, coin := range coins {
		label := coin.Name
		if coin.Symbol != "" {
			label = fmt.Sprintf("%s (%s)", coin.Name, strings.ToUpper(coin.Symbol))
		}
		button := tgbotapi.NewInlineKeyboardButtonData(label, payloadCoinPrefix+coin.ID)
		currentRow = append(currentRow, button)

		if len(currentRow) == 2 || i == len(coins)-1 {
			rows = append(rows, currentRow)
			currentRow = []tgbotapi.InlineKeyboardButton{}
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", payloadMainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func currencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var currentRow []tgbotapi.InlineKeyboardButton
	for i, code := range currencyCodes {
		button := tgbotapi.NewInlineKeyboardButtonData(strings.ToUpper(code), payloadCurrencyPrefix+code)
		currentRow = append(currentRow, button)
		if len(currentRow) == 3 || i == len(currencyCodes)-1 {
			rows = append(rows, currentRow)
			currentRow = []tgbotapi.InlineKeyboardButton{}
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", payloadMainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func detailKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚖️ Compare", payloadCompare),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main Menu", payloadMainMenu),
			tgbotapi.NewInlineKeyboardButtonData("❌ Quit", payloadQuit),
		),
	)
}

// formatDetail renders a coin market snapshot.
func formatDetail(d models.CoinDetail, currency string) string {
	arrow := "📈"
	if d.Change24h < 0 {
		arrow = "📉"
	}
	return fmt.Sprintf("💰 %s (%s)\n\nPrice: %s %s\n%s 24h Change: %+.2f%%\nMarket Cap: %s %s",
		d.Name, strings.ToUpper(d.Symbol),
		formatPrice(d.Price), strings.ToUpper(currency),
		arrow, d.Change24h,
		formatLargeNumber(d.MarketCap), strings.ToUpper(currency),
	)
}

// formatPrice keeps small-cap coins readable without drowning large ones
// in decimals.
func formatPrice(price float64) string {
	switch {
	case price >= 1:
		return fmt.Sprintf("%.2f", price)
	case price >= 0.01:
		return fmt.Sprintf("%.4f", price)
	default:
		return fmt.Sprintf("%.8f", price)
	}
}

func formatLargeNumber(n float64) string {
	switch {
	case n >= 1e12:
		return fmt.Sprintf("%.2fT", n/1e12)
	case n >= 1e9:
		return fmt.Sprintf("%.2fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline renders a price series as a fixed-width block-character chart.
func sparkline(points []models.PricePoint, width int) string {
	if len(points) == 0 {
		return ""
	}
	if len(points) < width {
		width = len(points)
	}

	// Downsample to width buckets, averaging each bucket.
	sampled := make([]float64, width)
	bucket := float64(len(points)) / float64(width)
	for i := 0; i < width; i++ {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(points) {
			end = len(points)
		}
		if start >= end {
			start = end - 1
		}
		var sum float64
		for _, p := range points[start:end] {
			sum += p.Price
		}
		sampled[i] = sum / float64(end-start)
	}

	low, high := sampled[0], sampled[0]
	for _, v := range sampled {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}

	var sb strings.Builder
	for _, v := range sampled {
		idx := 0
		if high > low {
			idx = int((v - low) / (high - low) * float64(len(sparkRunes)-1))
		}
		sb.WriteRune(sparkRunes[idx])
	}
	return sb.String()
}

// formatChart renders a historical series with a sparkline and summary.
func formatChart(coinID, currency string, days int, points []models.PricePoint) string {
	low, high := points[0].Price, points[0].Price
	for _, p := range points {
		if p.Price < low {
			low = p.Price
		}
		if p.Price > high {
			high = p.Price
		}
	}
	first, last := points[0].Price, points[len(points)-1].Price
	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}

	cur := strings.ToUpper(currency)
	return fmt.Sprintf("📊 %s, last %d days (%s)\n\n%s\n\nLow: %s\nHigh: %s\nNow: %s (%+.2f%%)",
		coinID, days, cur,
		sparkline(points, 24),
		formatPrice(low), formatPrice(high), formatPrice(last), change,
	)
}

// sendMessage sends a plain text message to a chat.
func (b *Bot) sendMessage(chatID int64, text string) tgbotapi.Message {
	return b.sendWithMarkup(chatID, text, nil)
}

// sendMenu sends a message with an inline keyboard.
func (b *Bot) sendMenu(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	return b.sendWithMarkup(chatID, text, &keyboard)
}

func (b *Bot) sendWithMarkup(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) tgbotapi.Message {
	if b.tg == nil {
		return tgbotapi.Message{}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}

	sent, err := b.tg.Send(msg)
	if err != nil {
		b.logger.Error("Failed to send message", zap.Error(err), zap.Int64("chat_id", chatID))
		return tgbotapi.Message{}
	}

	b.recordRender(chatID, sent.MessageID, text)
	return sent
}

// editRender edits a message in place. The edit is skipped when the text is
// identical to what the message already shows, so the transport never sees
// a redundant-edit request. On edit failure it falls back to sending a new
// message.
func (b *Bot) editRender(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if b.tg == nil {
		return
	}

	b.renderMu.Lock()
	last, seen := b.lastRender[renderKey{chatID, messageID}]
	b.renderMu.Unlock()
	if seen && last == text {
		metrics.RendersSuppressed.Inc()
		return
	}

	var edit tgbotapi.Chattable
	if keyboard != nil {
		msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *keyboard)
		edit = msg
	} else {
		msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
		edit = msg
	}

	if _, err := b.tg.Send(edit); err != nil {
		b.logger.Warn("Edit failed, sending new message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID),
		)
		b.sendWithMarkup(chatID, text, keyboard)
		return
	}

	b.recordRender(chatID, messageID, text)
}

func (b *Bot) recordRender(chatID int64, messageID int, text string) {
	b.renderMu.Lock()
	defer b.renderMu.Unlock()
	b.lastRender[renderKey{chatID, messageID}] = text
}
