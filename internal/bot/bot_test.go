package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricebot/internal/market/stubs"
	"pricebot/internal/models"
	"pricebot/internal/store"
	"pricebot/internal/store/memory"
)

// recorder captures outbound messages instead of talking to Telegram.
type recorder struct {
	sent []tgbotapi.Chattable
}

func (r *recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c)
	return tgbotapi.Message{MessageID: 1000 + len(r.sent)}, nil
}

func (r *recorder) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every sent or edited message in order.
func (r *recorder) texts() []string {
	var out []string
	for _, c := range r.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func newTestBot(rec *recorder) (*Bot, *stubs.MockProvider, *memory.Store) {
	provider := stubs.NewMockProvider()
	st := memory.New()
	b := &Bot{
		tg:              rec,
		provider:        provider,
		store:           st,
		logger:          zap.NewNop(),
		defaultCurrency: "usd",
		topLimit:        10,
		userLocks:       make(map[int64]*sync.Mutex),
		lastRender:      make(map[renderKey]string),
	}
	return b, provider, st
}

func command(userID, chatID int64, text string) *tgbotapi.Message {
	cmdLen := len(strings.Fields(text)[0])
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func textMessage(userID, chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
	}
}

func press(userID, chatID int64, messageID int, payload string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "query",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: chatID},
		},
		Data: payload,
	}
}

const (
	testUser int64 = 123
	testChat int64 = 456
)

func TestStartResetsState(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	// Park the user deep in the menu tree first.
	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:        models.StageCompareSelection,
		SelectedCoin: "bitcoin",
		Currency:     "eur",
	}))

	b.handleMessage(command(testUser, testChat, "/start"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageMainMenu, state.Stage)
	assert.Empty(t, state.SelectedCoin)
	assert.Equal(t, "eur", state.Currency, "preferred currency survives /start")

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Equal(t, welcomeText, texts[len(texts)-1])
}

func TestTopListShowsPlaceholderFirst(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	b.handleCallbackQuery(press(testUser, testChat, 42, payloadTop))

	texts := rec.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, fetchingText, texts[0], "placeholder must precede the list render")
	assert.Equal(t, chooseCoinText, texts[1])

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCoin, state.Stage)

	// The list render carries coin buttons with crypto: payloads.
	edit, ok := rec.sent[1].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	require.NotNil(t, edit.ReplyMarkup)
	first := edit.ReplyMarkup.InlineKeyboard[0][0]
	require.NotNil(t, first.CallbackData)
	assert.True(t, strings.HasPrefix(*first.CallbackData, "crypto:"))
}

func TestCoinCurrencyRoundTrip(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	b.handleCallbackQuery(press(testUser, testChat, 42, payloadTop))
	b.handleCallbackQuery(press(testUser, testChat, 42, "crypto:bitcoin"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCurrency, state.Stage)
	assert.Equal(t, "bitcoin", state.SelectedCoin)

	b.handleCallbackQuery(press(testUser, testChat, 42, "currency:eur"))

	state, err = st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageCompareSelection, state.Stage)
	assert.Equal(t, "eur", state.Currency)

	texts := rec.texts()
	detail := texts[len(texts)-1]
	assert.Contains(t, detail, "Bitcoin")
	assert.Contains(t, detail, "EUR")
}

func TestCompareRefetchesList(t *testing.T) {
	rec := &recorder{}
	b, provider, st := newTestBot(rec)
	ctx := context.Background()

	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:        models.StageCompareSelection,
		SelectedCoin: "bitcoin",
		Currency:     "usd",
	}))

	b.handleCallbackQuery(press(testUser, testChat, 42, payloadCompare))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCoin, state.Stage)
	assert.Equal(t, 1, provider.Calls["TopCoins"])
}

func TestUnknownPayloadKeepsStage(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:    models.StageChoosingCoin,
		Currency: "usd",
	}))

	b.handleCallbackQuery(press(testUser, testChat, 42, "bogus:payload"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCoin, state.Stage)

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, unknownActionText, texts[0])
}

func TestActionInWrongStageKeepsStage(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	// Currency press straight from the main menu is not a defined transition.
	b.handleCallbackQuery(press(testUser, testChat, 42, "currency:eur"))

	state := b.session(ctx, testUser)
	assert.Equal(t, models.StageMainMenu, state.Stage)

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, unknownActionText, texts[0])

	_, err := st.GetSession(ctx, testUser)
	assert.ErrorIs(t, err, store.ErrNotFound, "no session should be created for a rejected action")
}

func TestMainMenuFromAnyDepth(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	b.handleCallbackQuery(press(testUser, testChat, 42, payloadTop))
	b.handleCallbackQuery(press(testUser, testChat, 42, "crypto:ethereum"))
	b.handleCallbackQuery(press(testUser, testChat, 42, payloadMainMenu))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageMainMenu, state.Stage)
	assert.Empty(t, state.SelectedCoin)

	texts := rec.texts()
	assert.Equal(t, welcomeText, texts[len(texts)-1])
}

func TestIdenticalRenderSuppressed(t *testing.T) {
	rec := &recorder{}
	b, _, _ := newTestBot(rec)

	// Pressing Main Menu twice would edit the message to identical text;
	// the second edit must be skipped.
	b.handleCallbackQuery(press(testUser, testChat, 42, payloadMainMenu))
	b.handleCallbackQuery(press(testUser, testChat, 42, payloadMainMenu))

	welcomeRenders := 0
	for _, text := range rec.texts() {
		if text == welcomeText {
			welcomeRenders++
		}
	}
	assert.Equal(t, 1, welcomeRenders)
}

func TestProviderErrorKeepsStage(t *testing.T) {
	rec := &recorder{}
	b, provider, _ := newTestBot(rec)
	ctx := context.Background()

	provider.Err = context.DeadlineExceeded

	b.handleCallbackQuery(press(testUser, testChat, 42, payloadTop))

	state := b.session(ctx, testUser)
	assert.Equal(t, models.StageMainMenu, state.Stage)

	texts := rec.texts()
	assert.Equal(t, unavailableText, texts[len(texts)-1])
}

func TestDetailLookupFailureKeepsStage(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:        models.StageChoosingCurrency,
		SelectedCoin: "ghostcoin",
		Currency:     "usd",
	}))

	b.handleCallbackQuery(press(testUser, testChat, 42, "currency:usd"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCurrency, state.Stage, "NotFound must not advance the stage")

	texts := rec.texts()
	assert.Equal(t, unavailableText, texts[len(texts)-1])
}

func TestSearchWithResults(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:    models.StageTypingSearch,
		Currency: "usd",
	}))

	b.handleMessage(textMessage(testUser, testChat, "doge"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageChoosingCoin, state.Stage)

	texts := rec.texts()
	assert.Equal(t, chooseCoinText, texts[len(texts)-1])
}

func TestSearchNoResultsReturnsToMainMenu(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	require.NoError(t, st.SetSession(ctx, testUser, &models.ConversationState{
		Stage:    models.StageTypingSearch,
		Currency: "usd",
	}))

	b.handleMessage(textMessage(testUser, testChat, "zzzzzz"))

	state, err := st.GetSession(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.StageMainMenu, state.Stage)

	texts := rec.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, searchNotFoundText, texts[len(texts)-2])
	assert.Equal(t, welcomeText, texts[len(texts)-1], "main menu render must follow the not-found message")
}

func TestKeywordResponder(t *testing.T) {
	rec := &recorder{}
	b, _, _ := newTestBot(rec)

	b.handleMessage(textMessage(testUser, testChat, "Hello bot"))

	texts := rec.texts()
	require.Len(t, texts, 1)
	assert.Equal(t, "Hey there! 👋", texts[0])
}

func TestAlertCommandLifecycle(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	b.handleMessage(command(testUser, testChat, "/alert bitcoin above 30000"))

	alert, err := st.GetAlert(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", alert.CoinID)
	assert.Equal(t, models.DirectionAbove, alert.Direction)
	assert.Equal(t, 30000.0, alert.Threshold)

	// Last write wins.
	b.handleMessage(command(testUser, testChat, "/alert ethereum below 2000"))
	alert, err = st.GetAlert(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", alert.CoinID)
	assert.Equal(t, models.DirectionBelow, alert.Direction)

	b.handleMessage(command(testUser, testChat, "/alert off"))
	_, err = st.GetAlert(ctx, testUser)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAlertCommandRejectsBadInput(t *testing.T) {
	rec := &recorder{}
	b, _, st := newTestBot(rec)
	ctx := context.Background()

	b.handleMessage(command(testUser, testChat, "/alert bitcoin sideways 30000"))
	b.handleMessage(command(testUser, testChat, "/alert bitcoin above notanumber"))
	b.handleMessage(command(testUser, testChat, "/alert bitcoin above -5"))

	_, err := st.GetAlert(ctx, testUser)
	assert.ErrorIs(t, err, store.ErrNotFound, "invalid input must not create an alert")

	for _, text := range rec.texts() {
		assert.NotContains(t, text, "Alert set")
	}
}

func TestPriceCommand(t *testing.T) {
	rec := &recorder{}
	b, _, _ := newTestBot(rec)

	b.handleMessage(command(testUser, testChat, "/price bitcoin eur"))

	texts := rec.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, fetchingText, texts[0])
	assert.Contains(t, texts[1], "Bitcoin")
	assert.Contains(t, texts[1], "EUR")
}

func TestChartCommand(t *testing.T) {
	rec := &recorder{}
	b, provider, _ := newTestBot(rec)

	provider.History["bitcoin"] = []models.PricePoint{
		{Price: 100}, {Price: 110}, {Price: 120}, {Price: 90},
	}

	b.handleMessage(command(testUser, testChat, "/chart bitcoin 7"))

	texts := rec.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "bitcoin")
	assert.Contains(t, texts[1], "Low: 90.00")
	assert.Contains(t, texts[1], "High: 120.00")
}

func TestPanicRecovery(t *testing.T) {
	rec := &recorder{}
	b, _, _ := newTestBot(rec)
	b.store = nil // force a panic inside the handler

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("handleMessage panicked: %v", r)
		}
	}()

	b.handleMessage(textMessage(testUser, testChat, "anything"))

	texts := rec.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "error occurred")
}
