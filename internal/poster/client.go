// Package poster is a client for the Poster POS REST API
package poster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/barkeephq/barkeep/pkg/telemetry"
)

const defaultBaseURL = "https://joinposter.com/api"

// Client calls the Poster REST API. All endpoints are GETs with the access
// token in the query string and a {"response": ...} envelope around the
// payload.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// NewClient creates a Poster API client
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one API call and unwraps the response envelope
func (c *Client) get(ctx context.Context, method string, params url.Values) (raw json.RawMessage, err error) {
	ctx, span := telemetry.StartPosterSpan(ctx, method)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", method, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, string(data))
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if envelope.Response == nil {
		// Some endpoints return the payload without the envelope
		return data, nil
	}
	return envelope.Response, nil
}

// dateRange builds the dateFrom/dateTo parameters. An empty "to" defaults to
// "from", matching the API's single-day queries.
func dateRange(from, to string) url.Values {
	if to == "" {
		to = from
	}
	params := url.Values{}
	params.Set("dateFrom", from)
	params.Set("dateTo", to)
	return params
}

// GetTransactionsRaw returns dash.getTransactions as raw JSON
func (c *Client) GetTransactionsRaw(ctx context.Context, from, to string) (json.RawMessage, error) {
	return c.get(ctx, "dash.getTransactions", dateRange(from, to))
}

// GetProductSalesRaw returns dash.getProductsSales as raw JSON
func (c *Client) GetProductSalesRaw(ctx context.Context, from, to string) (json.RawMessage, error) {
	return c.get(ctx, "dash.getProductsSales", dateRange(from, to))
}

// GetStockLevelsRaw returns storage.getStorageLeftovers as raw JSON
func (c *Client) GetStockLevelsRaw(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "storage.getStorageLeftovers", nil)
}

// GetIngredientUsageRaw returns storage.getReportMovement as raw JSON
func (c *Client) GetIngredientUsageRaw(ctx context.Context, from, to string) (json.RawMessage, error) {
	return c.get(ctx, "storage.getReportMovement", dateRange(from, to))
}

// GetFinanceTransactionsRaw returns finance.getTransactions as raw JSON
func (c *Client) GetFinanceTransactionsRaw(ctx context.Context, from, to string) (json.RawMessage, error) {
	return c.get(ctx, "finance.getTransactions", dateRange(from, to))
}

// GetCashShiftsRaw returns finance.getCashShifts as raw JSON
func (c *Client) GetCashShiftsRaw(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "finance.getCashShifts", nil)
}

// GetTransactionProductsRaw returns dash.getTransactionProducts as raw JSON
func (c *Client) GetTransactionProductsRaw(ctx context.Context, transactionID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("transaction_id", transactionID)
	return c.get(ctx, "dash.getTransactionProducts", params)
}
