package stubs

import (
	"context"
	"strings"
	"sync"

	"pricebot/internal/market"
	"pricebot/internal/models"
)

// MockProvider is an in-memory implementation of market.Provider for testing.
type MockProvider struct {
	mu       sync.RWMutex
	Top      []models.Coin
	Trending []models.Coin
	Details  map[string]models.CoinDetail
	History  map[string][]models.PricePoint

	// Err, when set, is returned by every call to simulate an outage.
	Err error

	// Calls counts invocations per method name.
	Calls map[string]int
}

// NewMockProvider creates a mock provider pre-populated with a few coins.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Top: []models.Coin{
			{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"},
			{ID: "ethereum", Name: "Ethereum", Symbol: "eth"},
			{ID: "dogecoin", Name: "Dogecoin", Symbol: "doge"},
		},
		Trending: []models.Coin{
			{ID: "solana", Name: "Solana", Symbol: "sol"},
		},
		Details: map[string]models.CoinDetail{
			"bitcoin":  {ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", Price: 42000, Change24h: 1.5, MarketCap: 8.2e11},
			"ethereum": {ID: "ethereum", Name: "Ethereum", Symbol: "eth", Price: 2500, Change24h: -0.7, MarketCap: 3.0e11},
			"dogecoin": {ID: "dogecoin", Name: "Dogecoin", Symbol: "doge", Price: 0.08, Change24h: 4.2, MarketCap: 1.1e10},
			"solana":   {ID: "solana", Name: "Solana", Symbol: "sol", Price: 98, Change24h: 2.1, MarketCap: 4.3e10},
		},
		History: make(map[string][]models.PricePoint),
		Calls:   make(map[string]int),
	}
}

func (m *MockProvider) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method]++
	return m.Err
}

func (m *MockProvider) TopCoins(ctx context.Context, vsCurrency string, limit int) ([]models.Coin, error) {
	if err := m.record("TopCoins"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit > len(m.Top) {
		limit = len(m.Top)
	}
	out := make([]models.Coin, limit)
	copy(out, m.Top[:limit])
	return out, nil
}

func (m *MockProvider) TrendingCoins(ctx context.Context) ([]models.Coin, error) {
	if err := m.record("TrendingCoins"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Coin, len(m.Trending))
	copy(out, m.Trending)
	return out, nil
}

func (m *MockProvider) SearchCoins(ctx context.Context, query string) ([]models.Coin, error) {
	if err := m.record("SearchCoins"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	query = strings.ToLower(query)
	var out []models.Coin
	for _, c := range append(append([]models.Coin{}, m.Top...), m.Trending...) {
		if strings.Contains(strings.ToLower(c.Name), query) || strings.Contains(c.Symbol, query) || strings.Contains(c.ID, query) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockProvider) CoinDetail(ctx context.Context, id, vsCurrency string) (models.CoinDetail, error) {
	if err := m.record("CoinDetail"); err != nil {
		return models.CoinDetail{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	detail, ok := m.Details[id]
	if !ok {
		return models.CoinDetail{}, market.ErrNotFound
	}
	return detail, nil
}

func (m *MockProvider) HistoricalPrices(ctx context.Context, id, vsCurrency string, days int) ([]models.PricePoint, error) {
	if err := m.record("HistoricalPrices"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	points, ok := m.History[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return out, nil
}

// SetPrice updates the current price for a coin.
func (m *MockProvider) SetPrice(id string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	detail := m.Details[id]
	detail.ID = id
	detail.Price = price
	m.Details[id] = detail
}
