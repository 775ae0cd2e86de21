package disclosure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicgraph/donorlens/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{BaseURL: "https://api.example.gov/v1"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{BaseURL: "https://api.example.gov/v1", APIKey: "key"})
	require.NoError(t, err)
}

func TestFetchPageSendsCursorProtocol(t *testing.T) {
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{"id": "txn-1", "date": "2026-03-05", "contributor_first_name": "Jane",
				 "contributor_last_name": "Doe", "contributor_city": "Albany",
				 "contributor_state": "NY", "contributor_zip": "10001",
				 "amount": "250.00", "memo_code": ""},
				{"id": "txn-2", "date": "2026-03-06", "contributor_first_name": "Sub",
				 "contributor_last_name": "Total", "contributor_state": "NY",
				 "contributor_zip": "10001", "amount": "990.00", "memo_code": "X"},
				{"id": "txn-3", "date": "bad-date", "contributor_first_name": "No",
				 "contributor_last_name": "Amount", "contributor_state": "NY",
				 "contributor_zip": "10001", "amount": "", "memo_code": ""}
			],
			"pagination": {"last_index": "opaque-token-97", "total_count": 412}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	page, err := client.FetchPage(context.Background(), "C00123", 2026, 100, "prev-token")
	require.NoError(t, err)

	assert.Equal(t, []string{"C00123"}, gotQuery["committee_id"])
	assert.Equal(t, []string{"2026"}, gotQuery["cycle"])
	assert.Equal(t, []string{"100"}, gotQuery["per_page"])
	assert.Equal(t, []string{"prev-token"}, gotQuery["last_index"])
	assert.Equal(t, []string{"test-key"}, gotQuery["api_key"])

	// Cursor and informational total carried through unmodified.
	assert.Equal(t, "opaque-token-97", page.Cursor)
	assert.Equal(t, 412, page.TotalCount)

	require.Len(t, page.Records, 3)
	assert.True(t, page.Records[0].Amount.Equal(decimal.RequireFromString("250.00")))
	assert.False(t, page.Records[0].Memoed)
	assert.Equal(t, 2026, page.Records[0].Date.Year())

	// Memo code marks the record excluded.
	assert.True(t, page.Records[1].Memoed)
	assert.False(t, page.Records[1].Countable())

	// Malformed amount defaults to zero at the boundary and is therefore
	// uncountable downstream.
	assert.True(t, page.Records[2].Amount.IsZero())
	assert.False(t, page.Records[2].Countable())
}

func TestFetchPageOmitsCursorOnFirstRequest(t *testing.T) {
	var hadCursor bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadCursor = r.URL.Query()["last_index"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [], "pagination": {"last_index": "", "total_count": 0}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	page, err := client.FetchPage(context.Background(), "C00123", 2026, 100, "")
	require.NoError(t, err)
	assert.False(t, hadCursor)
	assert.Empty(t, page.Records)
}

func TestFetchPageClientErrorIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad committee id", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.FetchPage(context.Background(), "bogus", 2026, 100, "")
	require.Error(t, err)
	assert.False(t, common.IsRetryable(err))
}

func TestTotalReceipts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/committees/C00123/totals", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_receipts": "1234567.89"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	total, err := client.TotalReceipts(context.Background(), "C00123", 2026)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("1234567.89")))
}

func TestResolveTakesFirstViableMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme pac", r.URL.Query().Get("q"))
		assert.Equal(t, "CA", r.URL.Query().Get("state"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"committee_id": "", "name": "Acme PAC (terminated)"},
			{"committee_id": "C00111", "name": "Acme PAC"},
			{"committee_id": "C00222", "name": "Acme PAC of California"}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	sourceID, err := client.Resolve(context.Background(), "acme pac", "CA", "")
	require.NoError(t, err)
	assert.Equal(t, "C00111", sourceID)
}

func TestResolveNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)

	_, err = client.Resolve(context.Background(), "ghost pac", "", "")
	assert.ErrorIs(t, err, common.ErrNoMatch)
}
