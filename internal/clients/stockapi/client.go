package stockapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrMalformedPrice marks a payload the API answered with but that carries
// no usable price (absent, NaN or negative). Callers treat this as a
// symbol-local problem: not retryable and not a dependency failure.
var ErrMalformedPrice = errors.New("malformed price payload")

// Client talks to the external stock quote API
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new stock API client. timeout bounds every fetch;
// per-call deadlines can be shortened further via context.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "stockapi").Logger(),
	}
}

// priceResponse mirrors the quote API's JSON envelope. Price is a pointer
// because the API answers 200 with a null price when the upstream source
// has nothing for the symbol.
type priceResponse struct {
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Change    float64  `json:"change"`
	PctChange float64  `json:"pct_change"`
	Volume    int64    `json:"volume"`
	Source    string   `json:"source"`
	Timestamp string   `json:"timestamp"`
	Error     string   `json:"error"`
}

// GetPrice fetches the current quote for one symbol. Connection, DNS,
// timeout and non-2xx failures come back as plain errors; a well-formed
// response without a usable price comes back as ErrMalformedPrice.
func (c *Client) GetPrice(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Add("symbol", strings.ToUpper(strings.TrimSpace(symbol)))

	reqURL := c.baseURL + "/api/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fintrack/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stock API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload priceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPrice, payload.Error)
	}
	if payload.Price == nil || math.IsNaN(*payload.Price) || *payload.Price < 0 {
		return nil, fmt.Errorf("%w for symbol %s", ErrMalformedPrice, symbol)
	}

	quote := &Quote{
		Symbol:    payload.Symbol,
		Price:     *payload.Price,
		Change:    payload.Change,
		PctChange: payload.PctChange,
		Volume:    payload.Volume,
		Source:    payload.Source,
	}
	if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
		quote.Timestamp = ts
	}

	c.log.Debug().
		Str("symbol", quote.Symbol).
		Float64("price", quote.Price).
		Str("source", quote.Source).
		Msg("Fetched quote")

	return quote, nil
}

// Probe performs a cheap reachability check: one quote for a known-good
// symbol under the caller's (short) deadline. A malformed answer counts as
// a failed probe too; a dependency that returns garbage is not healthy.
func (c *Client) Probe(ctx context.Context, symbol string) error {
	if _, err := c.GetPrice(ctx, symbol); err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	return nil
}
