package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"pricebot/internal/market"
	"pricebot/internal/metrics"
	"pricebot/internal/models"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client is a market.Provider backed by the CoinGecko REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a CoinGecko client. baseURL may be empty to use the
// public API endpoint.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

var _ market.Provider = (*Client)(nil)

type marketEntry struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	CurrentPrice   float64 `json:"current_price"`
	MarketCap      float64 `json:"market_cap"`
	PriceChange24h float64 `json:"price_change_percentage_24h"`
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"item"`
	} `json:"coins"`
}

type searchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"coins"`
}

type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// TopCoins returns up to limit coins ranked by market cap descending.
func (c *Client) TopCoins(ctx context.Context, vsCurrency string, limit int) ([]models.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("page", "1")

	var entries []marketEntry
	if err := c.getJSON(ctx, "/coins/markets", q, &entries); err != nil {
		return nil, err
	}

	coins := make([]models.Coin, 0, len(entries))
	for _, e := range entries {
		coins = append(coins, models.Coin{ID: e.ID, Name: e.Name, Symbol: e.Symbol})
	}
	return coins, nil
}

// TrendingCoins returns the coins trending on CoinGecko.
func (c *Client) TrendingCoins(ctx context.Context) ([]models.Coin, error) {
	var resp trendingResponse
	if err := c.getJSON(ctx, "/search/trending", nil, &resp); err != nil {
		return nil, err
	}

	coins := make([]models.Coin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		coins = append(coins, models.Coin{
			ID:     entry.Item.ID,
			Name:   entry.Item.Name,
			Symbol: entry.Item.Symbol,
		})
	}
	return coins, nil
}

// SearchCoins returns coins matching the free-text query.
func (c *Client) SearchCoins(ctx context.Context, query string) ([]models.Coin, error) {
	q := url.Values{}
	q.Set("query", query)

	var resp searchResponse
	if err := c.getJSON(ctx, "/search", q, &resp); err != nil {
		return nil, err
	}

	coins := make([]models.Coin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		coins = append(coins, models.Coin{ID: entry.ID, Name: entry.Name, Symbol: entry.Symbol})
	}
	return coins, nil
}

// CoinDetail returns the market snapshot for one coin. An empty markets
// response for the id maps to market.ErrNotFound.
func (c *Client) CoinDetail(ctx context.Context, id, vsCurrency string) (models.CoinDetail, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("ids", id)

	var entries []marketEntry
	if err := c.getJSON(ctx, "/coins/markets", q, &entries); err != nil {
		return models.CoinDetail{}, err
	}
	if len(entries) == 0 {
		return models.CoinDetail{}, market.ErrNotFound
	}

	e := entries[0]
	return models.CoinDetail{
		ID:        e.ID,
		Name:      e.Name,
		Symbol:    e.Symbol,
		Price:     e.CurrentPrice,
		Change24h: e.PriceChange24h,
		MarketCap: e.MarketCap,
	}, nil
}

// HistoricalPrices returns the price series for the last N days.
func (c *Client) HistoricalPrices(ctx context.Context, id, vsCurrency string, days int) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", vsCurrency)
	q.Set("days", strconv.Itoa(days))

	var resp marketChartResponse
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &resp); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		points = append(points, models.PricePoint{
			Timestamp: time.UnixMilli(int64(p[0])),
			Price:     p[1],
		})
	}
	return points, nil
}

// getJSON performs a GET against the API and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(path, "error").Inc()
		return fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotFound {
		return market.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("CoinGecko returned non-OK status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode coingecko response: %w", err)
	}
	return nil
}
