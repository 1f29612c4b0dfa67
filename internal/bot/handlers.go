package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/metrics"
	"pricebot/internal/models"
)

// handleMessage processes a single inbound message.
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendMessage(message.Chat.ID, "An error occurred while processing your request. Please try again.")
		}
	}()

	if message.From == nil {
		return
	}

	if len(message.NewChatMembers) > 0 {
		b.greetNewMembers(message)
		return
	}

	userID := message.From.ID
	mu := b.lockUser(userID)
	mu.Lock()
	defer mu.Unlock()

	if message.IsCommand() {
		metrics.UpdatesTotal.WithLabelValues("command").Inc()
		switch message.Command() {
		case "start":
			b.handleStart(message)
		case "help":
			b.handleHelp(message)
		case "price":
			b.handlePrice(message)
		case "chart":
			b.handleChart(message)
		case "alert":
			b.handleAlert(message)
		default:
			b.sendMessage(message.Chat.ID, "Unknown command. Use /start to open the menu.")
		}
		return
	}

	metrics.UpdatesTotal.WithLabelValues("text").Inc()
	b.handleText(message)
}

// handleText routes free text: a search query while the user is in the
// search stage, a keyword responder otherwise.
func (b *Bot) handleText(message *tgbotapi.Message) {
	ctx, cancel := providerContext()
	defer cancel()

	userID := message.From.ID
	state := b.session(ctx, userID)

	if state.Stage == models.StageTypingSearch {
		b.handleSearch(ctx, message.Chat.ID, userID, state, message.Text)
		return
	}

	if strings.Contains(strings.ToLower(message.Text), "hello") {
		b.sendMessage(message.Chat.ID, "Hey there! 👋")
		return
	}
	b.sendMessage(message.Chat.ID, "I didn't catch that. Use /start to open the menu.")
}

// handleSearch queries the provider for the typed text. Non-empty results
// move the user to coin selection; no results return them to the main menu.
func (b *Bot) handleSearch(ctx context.Context, chatID, userID int64, state *models.ConversationState, query string) {
	placeholder := b.sendMessage(chatID, fetchingText)

	coins, err := b.provider.SearchCoins(ctx, strings.TrimSpace(query))
	if err != nil {
		b.logger.Warn("Search failed", zap.Error(err), zap.String("query", query))
		b.editRender(chatID, placeholder.MessageID, unavailableText, nil)
		return
	}

	if len(coins) == 0 {
		state.Stage = models.StageMainMenu
		state.SelectedCoin = ""
		b.saveSession(ctx, userID, state)
		b.editRender(chatID, placeholder.MessageID, searchNotFoundText, nil)
		b.sendMenu(chatID, welcomeText, mainMenuKeyboard())
		return
	}

	state.Stage = models.StageChoosingCoin
	b.saveSession(ctx, userID, state)
	kb := coinListKeyboard(coins)
	b.editRender(chatID, placeholder.MessageID, chooseCoinText, &kb)
}

func (b *Bot) greetNewMembers(message *tgbotapi.Message) {
	for _, member := range message.NewChatMembers {
		name := member.FirstName
		if name == "" {
			name = member.UserName
		}
		b.sendMessage(message.Chat.ID, fmt.Sprintf("Welcome, %s! Send /start to look up crypto prices.", name))
	}
}
