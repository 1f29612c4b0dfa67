package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricebot/internal/market/stubs"
	"pricebot/internal/models"
	"pricebot/internal/store"
	"pricebot/internal/store/memory"
)

type notification struct {
	userID int64
	text   string
}

type fakeNotifier struct {
	sent []notification
}

func (f *fakeNotifier) NotifyAlert(userID int64, text string) error {
	f.sent = append(f.sent, notification{userID, text})
	return nil
}

func newTestChecker(t *testing.T, oneShot bool) (*Checker, *stubs.MockProvider, *memory.Store, *fakeNotifier) {
	t.Helper()
	provider := stubs.NewMockProvider()
	st := memory.New()
	notifier := &fakeNotifier{}
	checker := NewChecker(st, provider, notifier, time.Minute, "usd", oneShot, zap.NewNop())
	return checker, provider, st, notifier
}

func setAlert(t *testing.T, st *memory.Store, userID int64, coin string, threshold float64, dir models.Direction) {
	t.Helper()
	require.NoError(t, st.SetAlert(context.Background(), &models.Alert{
		UserID:    userID,
		CoinID:    coin,
		Threshold: threshold,
		Direction: dir,
		CreatedAt: time.Now(),
	}))
}

func TestAlertFiresWhenPriceCrossesAbove(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	setAlert(t, st, 123, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 30500)

	checker.RunTick(ctx)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(123), notifier.sent[0].userID)
	assert.Contains(t, notifier.sent[0].text, "bitcoin")
}

func TestAlertDoesNotFireBelowThreshold(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	setAlert(t, st, 123, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 29000)

	checker.RunTick(ctx)

	assert.Empty(t, notifier.sent)
}

func TestAlertFiresBelowDirection(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	setAlert(t, st, 123, "ethereum", 3000, models.DirectionBelow)
	provider.SetPrice("ethereum", 2500)

	checker.RunTick(ctx)

	require.Len(t, notifier.sent, 1)
}

func TestAlertExactThresholdFires(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	setAlert(t, st, 123, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 30000)

	checker.RunTick(ctx)

	require.Len(t, notifier.sent, 1, "price equal to threshold counts as crossed")
}

func TestAlertRefiresWhileConditionHolds(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	setAlert(t, st, 123, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 31000)

	checker.RunTick(ctx)
	checker.RunTick(ctx)

	assert.Len(t, notifier.sent, 2, "without one-shot mode the alert stays active")
}

func TestOneShotAlertDeletedAfterFiring(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, true)
	ctx := context.Background()

	setAlert(t, st, 123, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 31000)

	checker.RunTick(ctx)
	checker.RunTick(ctx)

	assert.Len(t, notifier.sent, 1)

	_, err := st.GetAlert(ctx, 123)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFailedCheckDoesNotAbortOthers(t *testing.T) {
	checker, provider, st, notifier := newTestChecker(t, false)
	ctx := context.Background()

	// User 1 watches a coin the provider does not know; user 200 has a
	// live one. Evaluation must reach user 200.
	setAlert(t, st, 1, "ghostcoin", 10, models.DirectionAbove)
	setAlert(t, st, 200, "bitcoin", 30000, models.DirectionAbove)
	provider.SetPrice("bitcoin", 40000)

	checker.RunTick(ctx)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, int64(200), notifier.sent[0].userID)
}

func TestTickWithNoAlertsDoesNothing(t *testing.T) {
	checker, provider, _, notifier := newTestChecker(t, false)

	checker.RunTick(context.Background())

	assert.Empty(t, notifier.sent)
	assert.Zero(t, provider.Calls["CoinDetail"])
}
