package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pricebot/internal/models"
	"pricebot/internal/store"
)

// session loads the user's conversation state, falling back to a fresh
// main-menu state when none exists or the store fails.
func (b *Bot) session(ctx context.Context, userID int64) *models.ConversationState {
	state, err := b.store.GetSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			b.logger.Error("Failed to load session", zap.Error(err), zap.Int64("user_id", userID))
		}
		return &models.ConversationState{
			Stage:    models.StageMainMenu,
			Currency: b.defaultCurrency,
		}
	}
	if state.Currency == "" {
		state.Currency = b.defaultCurrency
	}
	return state
}

func (b *Bot) saveSession(ctx context.Context, userID int64, state *models.ConversationState) {
	if err := b.store.SetSession(ctx, userID, state); err != nil {
		b.logger.Error("Failed to save session", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// resetSession returns the user to the main menu, keeping their preferred
// currency.
func (b *Bot) resetSession(ctx context.Context, userID int64) *models.ConversationState {
	state := b.session(ctx, userID)
	state.Stage = models.StageMainMenu
	state.SelectedCoin = ""
	b.saveSession(ctx, userID, state)
	return state
}
