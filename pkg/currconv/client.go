// Package currconv provides a client for the Currency Converter API historical rates endpoint.
package currconv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// DefaultBaseURL is the free tier API root.
const DefaultBaseURL = "https://free.currconv.com"

// DefaultMaxPairsPerRequest is the free tier limit of pairs per query.
const DefaultMaxPairsPerRequest = 2

// ClientConfig represents the configuration for the rate API client.
type ClientConfig struct {
	BaseURL            string
	APIKey             string
	MaxPairsPerRequest int
	Timeout            time.Duration // Default: 30 seconds
}

// Client fetches historical exchange rates.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxPairs   int
}

// Pair is a conversion direction, From units priced in To.
type Pair struct {
	From money.CurrencyCode
	To   money.CurrencyCode
}

func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// APIError is a client error reported by the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("currency converter API error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a new rate API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxPairs := config.MaxPairsPerRequest
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairsPerRequest
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		apiKey:   config.APIKey,
		maxPairs: maxPairs,
	}
}

// GetRates fetches the rates of all pairs for one date, chunked to the
// configured maximum number of pairs per request.
func (c *Client) GetRates(ctx context.Context, date time.Time, pairs []Pair) (map[Pair]money.ExchangeRate, error) {
	rates := make(map[Pair]money.ExchangeRate, len(pairs))
	for start := 0; start < len(pairs); start += c.maxPairs {
		end := min(start+c.maxPairs, len(pairs))
		if err := c.fetchChunk(ctx, date, pairs[start:end], rates); err != nil {
			return nil, err
		}
	}
	return rates, nil
}

func (c *Client) fetchChunk(ctx context.Context, date time.Time, pairs []Pair, rates map[Pair]money.ExchangeRate) error {
	day := date.Format("2006-01-02")

	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.String()
	}

	query := url.Values{}
	query.Set("q", strings.Join(names, ","))
	query.Set("compact", "ultra")
	query.Set("date", day)
	query.Set("apiKey", c.apiKey)
	endpoint := fmt.Sprintf("%s/api/v7/convert?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	slog.Debug("Fetching exchange rates", "pairs", names, "date", day)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, body)
	}

	var result map[string]map[string]float64
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode exchange rates: %w", err)
	}

	for _, p := range pairs {
		byDate, ok := result[p.String()]
		if !ok {
			return fmt.Errorf("exchange rate response is missing pair %s", p)
		}
		rate, ok := byDate[day]
		if !ok {
			return fmt.Errorf("exchange rate response for %s is missing date %s", p, day)
		}
		rates[p] = money.ExchangeRateFromFloat(rate)
	}
	return nil
}

func parseError(status int, body []byte) error {
	if status >= 400 && status < 500 {
		var errResp struct {
			Status int    `json:"status"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return &APIError{StatusCode: status, Message: errResp.Error}
		}
	}
	return fmt.Errorf("unexpected response from currency converter API (status %d): %s", status, string(body))
}
