// Package disclosure provides a client for the public campaign finance
// disclosure API: the paginated contribution source, the authoritative
// totals endpoint, and committee search.
package disclosure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/civicgraph/donorlens/internal/service"
	"github.com/shopspring/decimal"
)

// Config holds disclosure API configuration.
type Config struct {
	BaseURL string
	APIKey  string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: disclosure base URL is required", common.ErrMissingConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: disclosure API key is required", common.ErrMissingConfig)
	}
	return nil
}

// Client talks to the disclosure API. It implements ContributionSource,
// TotalsSource, and CommitteeResolver.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	retryOpts  service.RetryOptions
	baseURL    string
	apiKey     string
}

// NewClient creates a new disclosure API client.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default().With("component", "disclosure"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Wire types for the disclosure API. Fields arrive loosely shaped; they
// are validated and defaulted at this boundary, never downstream.
type contributionRecord struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	FirstName string `json:"contributor_first_name"`
	LastName  string `json:"contributor_last_name"`
	City      string `json:"contributor_city"`
	State     string `json:"contributor_state"`
	Zip       string `json:"contributor_zip"`
	Amount    string `json:"amount"`
	MemoCode  string `json:"memo_code"`
}

type pagination struct {
	LastIndex  string `json:"last_index"`
	TotalCount int    `json:"total_count"`
}

type contributionsResponse struct {
	Results    []contributionRecord `json:"results"`
	Pagination pagination           `json:"pagination"`
}

type totalsResponse struct {
	TotalReceipts string `json:"total_receipts"`
}

type committeeResult struct {
	CommitteeID string `json:"committee_id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Category    string `json:"category"`
}

type searchResponse struct {
	Results []committeeResult `json:"results"`
}

// FetchPage retrieves one page of itemized contributions. The cursor is
// the opaque continuation token from the previous page; the first request
// passes an empty cursor.
func (c *Client) FetchPage(ctx context.Context, sourceID string, cycle, pageSize int, cursor string) (*service.ContributionPage, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	params := url.Values{}
	params.Set("committee_id", sourceID)
	params.Set("cycle", strconv.Itoa(cycle))
	params.Set("per_page", strconv.Itoa(pageSize))
	if cursor != "" {
		params.Set("last_index", cursor)
	}

	var page *service.ContributionPage
	retryErr := common.WithRetry(ctx, func() error {
		var resp contributionsResponse
		if err := c.getJSON(ctx, "/contributions", params, &resp); err != nil {
			return err
		}

		records := make([]model.Contribution, 0, len(resp.Results))
		for _, raw := range resp.Results {
			records = append(records, c.mapContribution(raw))
		}

		page = &service.ContributionPage{
			Records:    records,
			Cursor:     resp.Pagination.LastIndex,
			TotalCount: resp.Pagination.TotalCount,
		}

		c.logger.Debug("Fetched contribution page",
			"committee_id", sourceID,
			"count", len(records),
			"cursor", resp.Pagination.LastIndex)

		return nil
	}, c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	return page, nil
}

// TotalReceipts fetches the committee's authoritative aggregate total for
// the cycle. Consumed only post-finalization for reconciliation.
func (c *Client) TotalReceipts(ctx context.Context, sourceID string, cycle int) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("cycle", strconv.Itoa(cycle))

	var total decimal.Decimal
	retryErr := common.WithRetry(ctx, func() error {
		var resp totalsResponse
		path := "/committees/" + url.PathEscape(sourceID) + "/totals"
		if err := c.getJSON(ctx, path, params, &resp); err != nil {
			return err
		}

		parsed, err := decimal.NewFromString(resp.TotalReceipts)
		if err != nil {
			return fmt.Errorf("failed to parse total receipts %q: %w", resp.TotalReceipts, err)
		}
		total = parsed
		return nil
	}, c.retryOpts)

	if retryErr != nil {
		return decimal.Zero, retryErr
	}

	return total, nil
}

// Resolve searches committees by display name plus coarse filters and
// returns the source ID of the first viable match. Multiple candidates
// with similar names can bind the wrong ID; this is a known limitation.
func (c *Client) Resolve(ctx context.Context, name, state, category string) (string, error) {
	params := url.Values{}
	params.Set("q", name)
	if state != "" {
		params.Set("state", state)
	}
	if category != "" {
		params.Set("category", category)
	}

	var resp searchResponse
	retryErr := common.WithRetry(ctx, func() error {
		return c.getJSON(ctx, "/committees/search", params, &resp)
	}, c.retryOpts)
	if retryErr != nil {
		return "", retryErr
	}

	for _, candidate := range resp.Results {
		if candidate.CommitteeID != "" {
			c.logger.Info("Resolved committee",
				"name", name,
				"source_id", candidate.CommitteeID,
				"candidates", len(resp.Results))
			return candidate.CommitteeID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", common.ErrNoMatch, name)
}

// getJSON performs an authenticated GET and decodes a JSON response.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrSourceConnection, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("Rate limit hit, will retry", "path", path)
		return &common.RetryableError{Err: common.ErrRateLimit, Retryable: true}
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(resp.Body)
		return &common.RetryableError{
			Err:       fmt.Errorf("disclosure API error: %d - %s", resp.StatusCode, string(body)),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		// Client errors will not heal on retry.
		return &common.RetryableError{
			Err:       fmt.Errorf("disclosure API error: %d - %s", resp.StatusCode, string(body)),
			Retryable: false,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// mapContribution converts a wire record to the internal model, defaulting
// malformed fields so "maybe missing" never propagates past this boundary.
func (c *Client) mapContribution(raw contributionRecord) model.Contribution {
	date, err := time.Parse("2006-01-02", raw.Date)
	if err != nil && raw.Date != "" {
		c.logger.Debug("Failed to parse contribution date", "date", raw.Date, "error", err)
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		// Missing or unparseable amounts become zero and are excluded
		// downstream by the countable filter.
		amount = decimal.Zero
	}

	return model.Contribution{
		ID:        raw.ID,
		Date:      date,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		City:      raw.City,
		State:     raw.State,
		Zip:       raw.Zip,
		Amount:    amount,
		Memoed:    raw.MemoCode != "",
	}
}

// Interface compliance checks.
var (
	_ service.ContributionSource = (*Client)(nil)
	_ service.TotalsSource       = (*Client)(nil)
	_ service.CommitteeResolver  = (*Client)(nil)
)
