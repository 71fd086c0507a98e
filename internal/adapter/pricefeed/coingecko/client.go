package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Client talks to the coingecko simple-price API. The public API is
// rate limited, so every request passes through a limiter first.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new coingecko client.
// requestsPerMin bounds the outbound request rate.
func NewClient(baseURL string, requestsPerMin int) *Client {
	if requestsPerMin <= 0 {
		requestsPerMin = 30
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMin)), 1),
	}
}

// SimplePrices fetches the current USD price for the given coingecko IDs
// in a single request. IDs the feed does not know are absent from the
// result.
func (c *Client) SimplePrices(ctx context.Context, feedIDs []string) (map[string]decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(feedIDs, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price feed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Response shape: {"bitcoin": {"usd": 50000.12}, ...}
	var payload map[string]struct {
		USD *decimal.Decimal `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode price payload: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(payload))
	for id, quote := range payload {
		if quote.USD == nil {
			continue
		}
		prices[id] = *quote.USD
	}
	return prices, nil
}
