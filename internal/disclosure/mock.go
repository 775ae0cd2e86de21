package disclosure

import (
	"context"
	"strconv"

	"github.com/civicgraph/donorlens/internal/model"
	"github.com/civicgraph/donorlens/internal/service"
	"github.com/shopspring/decimal"
)

// MockSource is a scripted disclosure API for testing. Pages are served in
// order using an integer cursor; requests past the last page return an
// empty page, matching the real completion protocol.
type MockSource struct {
	PageErrs map[int]error
	// FetchErr, when set, fails every FetchPage call. Unlike PageErrs
	// entries it never clears.
	FetchErr     error
	ResolveErr   error
	TotalsErr    error
	ResolveID    string
	Pages        [][]model.Contribution
	CursorsSeen  []string
	Total        decimal.Decimal
	TotalCount   int
	FetchCalls   int
	TotalsCalls  int
	ResolveCalls int
}

// FetchPage serves the scripted page addressed by the cursor.
func (m *MockSource) FetchPage(_ context.Context, _ string, _, _ int, cursor string) (*service.ContributionPage, error) {
	m.FetchCalls++
	m.CursorsSeen = append(m.CursorsSeen, cursor)

	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	index := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, err
		}
		index = parsed
	}

	if err, ok := m.PageErrs[index]; ok && err != nil {
		// One-shot: the retried page succeeds.
		delete(m.PageErrs, index)
		return nil, err
	}

	page := &service.ContributionPage{
		Cursor:     strconv.Itoa(index + 1),
		TotalCount: m.TotalCount,
	}
	if index < len(m.Pages) {
		page.Records = m.Pages[index]
	}

	return page, nil
}

// TotalReceipts returns the scripted authoritative total.
func (m *MockSource) TotalReceipts(_ context.Context, _ string, _ int) (decimal.Decimal, error) {
	m.TotalsCalls++
	if m.TotalsErr != nil {
		return decimal.Zero, m.TotalsErr
	}
	return m.Total, nil
}

// Resolve returns the scripted source ID.
func (m *MockSource) Resolve(_ context.Context, _, _, _ string) (string, error) {
	m.ResolveCalls++
	if m.ResolveErr != nil {
		return "", m.ResolveErr
	}
	return m.ResolveID, nil
}

// Interface compliance checks.
var (
	_ service.ContributionSource = (*MockSource)(nil)
	_ service.TotalsSource       = (*MockSource)(nil)
	_ service.CommitteeResolver  = (*MockSource)(nil)
)
