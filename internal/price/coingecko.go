package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const coingeckoSimplePriceURL = "https://api.coingecko.com/api/v3/simple/price"

// Client fetches fiat spot prices for ether from the CoinGecko simple
// price API. No auth, no retry; a failure is surfaced to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL: coingeckoSimplePriceURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithURL points the client at a different endpoint, used by
// tests to substitute a fake.
func NewClientWithURL(url string) *Client {
	c := NewClient()
	c.baseURL = url
	return c
}

// EtherSpot returns the spot price of one ether in the given fiat
// currency (e.g. "usd").
func (c *Client) EtherSpot(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}
	url := fmt.Sprintf("%s?ids=ethereum&vs_currencies=%s", c.baseURL, currency)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price api status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	// {"ethereum":{"usd":1234.56}}
	var result map[string]map[string]float64
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("unmarshal response: %w", err)
	}
	quote, ok := result["ethereum"][currency]
	if !ok {
		return 0, fmt.Errorf("no %s quote for ethereum", currency)
	}
	if quote <= 0 {
		return 0, fmt.Errorf("non-positive %s quote: %v", currency, quote)
	}
	return quote, nil
}
