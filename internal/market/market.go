package market

import (
	"context"
	"errors"

	"pricebot/internal/models"
)

// ErrNotFound is returned when the pricing service has no data for the
// requested coin or query.
var ErrNotFound = errors.New("coin not found")

// Provider defines the interface for fetching market data.
// All calls are idempotent reads and may fail transiently; callers are
// expected to surface failures to the user and keep going.
type Provider interface {
	// TopCoins returns up to limit coins ranked by market cap.
	TopCoins(ctx context.Context, vsCurrency string, limit int) ([]models.Coin, error)

	// TrendingCoins returns the coins currently trending on the service.
	TrendingCoins(ctx context.Context) ([]models.Coin, error)

	// SearchCoins returns coins matching a free-text query.
	// An empty result with a nil error means no matches.
	SearchCoins(ctx context.Context, query string) ([]models.Coin, error)

	// CoinDetail returns the current market snapshot for one coin,
	// priced in vsCurrency. Returns ErrNotFound for unknown ids.
	CoinDetail(ctx context.Context, id, vsCurrency string) (models.CoinDetail, error)

	// HistoricalPrices returns the price series for the last N days.
	// Returns ErrNotFound for unknown ids.
	HistoricalPrices(ctx context.Context, id, vsCurrency string, days int) ([]models.PricePoint, error)
}
