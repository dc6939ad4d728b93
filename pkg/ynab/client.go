package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultAPIURL is the production API root.
const DefaultAPIURL = "https://api.ynab.com/v1"

// DefaultMaxTransactionsPerRequest is the default write chunk size.
const DefaultMaxTransactionsPerRequest = 100

// ClientConfig represents the configuration for the YNAB API client.
type ClientConfig struct {
	APIURL                    string
	AccessToken               string
	BudgetID                  string
	Timeout                   time.Duration // Default: 30 seconds
	MaxTransactionsPerRequest int           // Default: 100
}

// Client is a YNAB API client bound to one budget.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	budgetID    string
	chunkSize   int
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	ID         string
	Name       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("YNAB API error (status %d): %s - %s", e.StatusCode, e.Name, e.Detail)
	}
	return fmt.Sprintf("YNAB API error (status %d): %s", e.StatusCode, e.Name)
}

// NewClient creates a new YNAB API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	baseURL := config.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	chunkSize := config.MaxTransactionsPerRequest
	if chunkSize <= 0 {
		chunkSize = DefaultMaxTransactionsPerRequest
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     baseURL,
		accessToken: config.AccessToken,
		budgetID:    config.BudgetID,
		chunkSize:   chunkSize,
	}
}

// BudgetID returns the budget the client operates on.
func (c *Client) BudgetID() string {
	return c.budgetID
}

// GetBudgetSettings fetches the budget's currency and date settings.
func (c *Client) GetBudgetSettings(ctx context.Context) (*BudgetSettings, error) {
	var resp BudgetSettingsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("settings"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load budget settings: %w", err)
	}
	return &resp.Data.Settings, nil
}

// GetAccounts fetches all accounts of the budget.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	var resp AccountsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("accounts"), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return resp.Data.Accounts, nil
}

// GetTransactions fetches transactions changed since lastKnowledge (all
// transactions if nil), restricted to those dated on or after sinceDate.
func (c *Client) GetTransactions(ctx context.Context, sinceDate *time.Time, lastKnowledge *int64) (*TransactionsResult, error) {
	query := url.Values{}
	if sinceDate != nil {
		query.Set("since_date", sinceDate.Format("2006-01-02"))
	}
	if lastKnowledge != nil {
		query.Set("last_knowledge_of_server", fmt.Sprintf("%d", *lastKnowledge))
	}

	var resp TransactionsResponse
	if err := c.do(ctx, http.MethodGet, c.budgetPath("transactions"), query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to load latest transactions: %w", err)
	}
	return &TransactionsResult{
		Transactions:    resp.Data.Transactions,
		ServerKnowledge: resp.Data.ServerKnowledge,
	}, nil
}

// CreateTransactions creates transactions in chunks and returns the created transactions.
func (c *Client) CreateTransactions(ctx context.Context, transactions []SaveTransaction) ([]Transaction, error) {
	var created []Transaction
	for start := 0; start < len(transactions); start += c.chunkSize {
		end := min(start+c.chunkSize, len(transactions))
		body := struct {
			Transactions []SaveTransaction `json:"transactions"`
		}{transactions[start:end]}

		var resp SaveTransactionsResponse
		if err := c.do(ctx, http.MethodPost, c.budgetPath("transactions"), nil, body, &resp); err != nil {
			return nil, fmt.Errorf("failed to save new transactions (offset=%d): %w", start, err)
		}
		if len(resp.Data.DuplicateImportIDs) > 0 {
			slog.Warn("Ledger rejected duplicate import ids", "import_ids", resp.Data.DuplicateImportIDs)
		}
		created = append(created, resp.Data.Transactions...)
	}
	return created, nil
}

// UpdateTransactions updates transactions in chunks and returns the updated transactions.
func (c *Client) UpdateTransactions(ctx context.Context, transactions []UpdateTransaction) ([]Transaction, error) {
	var updated []Transaction
	for start := 0; start < len(transactions); start += c.chunkSize {
		end := min(start+c.chunkSize, len(transactions))
		body := struct {
			Transactions []UpdateTransaction `json:"transactions"`
		}{transactions[start:end]}

		var resp SaveTransactionsResponse
		if err := c.do(ctx, http.MethodPatch, c.budgetPath("transactions"), nil, body, &resp); err != nil {
			return nil, fmt.Errorf("failed to save changed transactions (offset=%d): %w", start, err)
		}
		updated = append(updated, resp.Data.Transactions...)
	}
	return updated, nil
}

func (c *Client) budgetPath(resource string) string {
	return fmt.Sprintf("%s/budgets/%s/%s", c.baseURL, url.PathEscape(c.budgetID), resource)
}

// do sends a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	if len(query) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("YNAB API request", "method", method, "url", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseError parses an error response from the API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Name: "failed to read error response"}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Name == "" {
		return &APIError{StatusCode: resp.StatusCode, Name: string(body)}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		ID:         errResp.Error.ID,
		Name:       errResp.Error.Name,
		Detail:     errResp.Error.Detail,
	}
}
