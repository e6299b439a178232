// Package market keeps asset quotes in the store up to date.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
)

// CoinGeckoClient fetches USD quotes from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
}

// NewCoinGeckoClient creates a new CoinGecko API client.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
	}
}

type simplePrice struct {
	USD       decimal.Decimal `json:"usd"`
	USDChange float64         `json:"usd_24h_change"`
}

// FetchMarketData returns coingecko id -> quote for the given ids.
// Ids CoinGecko does not know are absent from the result.
func (c *CoinGeckoClient) FetchMarketData(ctx context.Context, ids []string) (map[string]domain.MarketData, error) {
	if len(ids) == 0 {
		return map[string]domain.MarketData{}, nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	q := url.Values{}
	q.Set("ids", strings.Join(slices.Compact(sorted), ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")

	body, err := c.fetchWithRetry(ctx, c.baseURL+"/simple/price?"+q.Encode())
	if err != nil {
		return nil, err
	}

	// {"cosmos":{"usd":9.12,"usd_24h_change":-1.5},...}
	var raw map[string]simplePrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	result := make(map[string]domain.MarketData, len(raw))
	for id, p := range raw {
		result[id] = domain.MarketData{Price: p.USD, ChangePercent24Hr: p.USDChange}
	}
	return result, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, &domain.FetchError{
			Message: fmt.Sprintf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body)),
			Status:  resp.StatusCode,
		}
	}

	return nil, lastErr
}
