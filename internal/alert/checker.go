package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pricebot/internal/market"
	"pricebot/internal/metrics"
	"pricebot/internal/models"
	"pricebot/internal/store"
)

// Notifier delivers an alert notification to a user.
type Notifier interface {
	NotifyAlert(userID int64, text string) error
}

// Checker periodically re-evaluates stored price alerts against live
// prices and notifies owners when a threshold condition is crossed.
//
// Unless oneShot is set, a fired alert stays active and fires again on
// every tick while the condition holds. That matches the behavior this
// bot always had; one-shot mode deletes the alert after the first
// notification.
type Checker struct {
	alerts     store.AlertStore
	provider   market.Provider
	notifier   Notifier
	logger     *zap.Logger
	interval   time.Duration
	vsCurrency string
	oneShot    bool

	cron *cron.Cron
}

// NewChecker creates an alert checker. interval must be positive.
func NewChecker(alerts store.AlertStore, provider market.Provider, notifier Notifier, interval time.Duration, vsCurrency string, oneShot bool, logger *zap.Logger) *Checker {
	return &Checker{
		alerts:     alerts,
		provider:   provider,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
		vsCurrency: vsCurrency,
		oneShot:    oneShot,
	}
}

// Start schedules the periodic check. It returns immediately; ticks run on
// the cron goroutine and never block inbound event handling.
func (c *Checker) Start() error {
	c.cron = cron.New()
	_, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.interval)
		defer cancel()
		c.RunTick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule alert check: %w", err)
	}

	c.cron.Start()
	c.logger.Info("Alert checker started",
		zap.Duration("interval", c.interval),
		zap.Bool("one_shot", c.oneShot),
	)
	return nil
}

// Stop cancels the schedule and waits for a running tick to finish.
func (c *Checker) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.logger.Info("Alert checker stopped")
}

// RunTick evaluates every stored alert once. Each alert's check is
// isolated: a provider failure for one coin skips only that alert.
func (c *Checker) RunTick(ctx context.Context) {
	alerts, err := c.alerts.ListAlerts(ctx)
	if err != nil {
		c.logger.Error("Failed to list alerts", zap.Error(err))
		return
	}

	for _, alert := range alerts {
		c.checkOne(ctx, alert)
	}
}

func (c *Checker) checkOne(ctx context.Context, alert models.Alert) {
	detail, err := c.provider.CoinDetail(ctx, alert.CoinID, c.vsCurrency)
	if err != nil {
		c.logger.Warn("Alert price check failed",
			zap.Error(err),
			zap.Int64("user_id", alert.UserID),
			zap.String("coin", alert.CoinID),
		)
		return
	}

	if !alert.Triggered(detail.Price) {
		return
	}

	text := fmt.Sprintf("🔔 Price alert: %s is %s %.2f. Current price: %.2f %s",
		alert.CoinID, alert.Direction, alert.Threshold, detail.Price, strings.ToUpper(c.vsCurrency))
	if err := c.notifier.NotifyAlert(alert.UserID, text); err != nil {
		c.logger.Error("Failed to deliver alert notification",
			zap.Error(err),
			zap.Int64("user_id", alert.UserID),
		)
		return
	}

	metrics.AlertsFired.Inc()
	c.logger.Info("Alert fired",
		zap.Int64("user_id", alert.UserID),
		zap.String("coin", alert.CoinID),
		zap.Float64("threshold", alert.Threshold),
		zap.Float64("price", detail.Price),
	)

	if c.oneShot {
		if err := c.alerts.DeleteAlert(ctx, alert.UserID); err != nil {
			c.logger.Error("Failed to delete fired alert",
				zap.Error(err),
				zap.Int64("user_id", alert.UserID),
			)
		}
	}
}
