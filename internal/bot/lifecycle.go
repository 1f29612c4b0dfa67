package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pricebot/internal/metrics"
)

// Start starts the bot in polling mode and blocks until the updates
// channel closes.
func (b *Bot) Start() error {
	b.logger.Info("Starting bot in polling mode")

	// Remove webhook (if any was set previously)
	if _, err := b.client.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("Failed to delete webhook", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.client.GetUpdatesChan(u)

	b.logger.Info("Bot started successfully. Waiting for updates...")

	for update := range updates {
		b.HandleUpdate(update)
	}
	return nil
}

// StopPolling stops the polling loop.
func (b *Bot) StopPolling() {
	if b.client != nil {
		b.client.StopReceivingUpdates()
	}
}

// StartWebhook registers the webhook URL with Telegram. Updates then arrive
// through the HTTP endpoint served by the app.
func (b *Bot) StartWebhook(webhookURL string) error {
	b.logger.Info("Setting up webhook", zap.String("webhook_url", webhookURL))

	webhookConfig, err := tgbotapi.NewWebhook(webhookURL + "/telegram-webhook")
	if err != nil {
		return err
	}
	webhookConfig.MaxConnections = 40

	if _, err := b.client.Request(webhookConfig); err != nil {
		b.logger.Error("Failed to set webhook", zap.Error(err), zap.String("webhook_url", webhookURL))
		return err
	}

	info, err := b.client.GetWebhookInfo()
	if err != nil {
		b.logger.Warn("Failed to get webhook info", zap.Error(err))
	} else {
		b.logger.Info("Webhook set successfully",
			zap.String("url", info.URL),
			zap.Int("pending_updates", info.PendingUpdateCount),
		)
	}
	return nil
}

// HandleUpdate processes a single update from polling or webhook delivery.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	}

	if update.CallbackQuery != nil {
		metrics.UpdatesTotal.WithLabelValues("callback").Inc()
		b.handleCallbackQuery(update.CallbackQuery)
	}
}
