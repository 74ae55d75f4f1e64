package provider

import (
	"context"
	"sync"

	"stock-screener/internal/types"
)

// Fixture is the canned response for one ticker.
type Fixture struct {
	Metrics *types.TickerMetrics
	Ratings *types.AnalystRatings
	Err     error
}

// Mock serves fixed fixtures. Unknown tickers return no data.
type Mock struct {
	mu       sync.Mutex
	fixtures map[string]Fixture
	calls    map[string]int
}

func NewMock() *Mock {
	return &Mock{
		fixtures: make(map[string]Fixture),
		calls:    make(map[string]int),
	}
}

// NewDemoMock returns a mock preloaded with a handful of large caps whose
// numbers exercise every criterion, for MOCK data source runs.
func NewDemoMock() *Mock {
	m := NewMock()
	for ticker, f := range demoFixtures() {
		m.Set(ticker, f)
	}
	return m
}

func (m *Mock) Set(ticker string, f Fixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixtures[NormalizeTicker(ticker)] = f
}

// Calls returns how many fetches (metrics plus ratings) hit ticker.
func (m *Mock) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[NormalizeTicker(ticker)]
}

func (m *Mock) lookup(ticker string) Fixture {
	ticker = NormalizeTicker(ticker)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[ticker]++
	return m.fixtures[ticker]
}

func (m *Mock) FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	f := m.lookup(ticker)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Metrics == nil {
		return nil, nil
	}
	out := *f.Metrics
	return &out, nil
}

func (m *Mock) FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error) {
	f := m.lookup(ticker)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Ratings == nil {
		return nil, nil
	}
	out := *f.Ratings
	return &out, nil
}

func demoFixtures() map[string]Fixture {
	f := types.Float
	return map[string]Fixture{
		"MSFT": {
			Metrics: &types.TickerMetrics{
				ForwardPE: f(22.4), CurrentPrice: f(300), TargetMeanPrice: f(360),
				TargetHighPrice: f(420), TargetLowPrice: f(305), MarketCap: f(2.9e12),
				InsiderOwnershipPct: f(1.4), InstitutionalOwnershipPct: f(73.2),
			},
			Ratings: &types.AnalystRatings{Period: "2024-03-01", StrongBuy: 22, Buy: 30, Hold: 6},
		},
		"AAPL": {
			Metrics: &types.TickerMetrics{
				ForwardPE: f(28.1), CurrentPrice: f(180), TargetMeanPrice: f(200),
				TargetHighPrice: f(250), TargetLowPrice: f(150), MarketCap: f(2.8e12),
				InsiderOwnershipPct: f(0.07), InstitutionalOwnershipPct: f(61.5),
			},
			Ratings: &types.AnalystRatings{Period: "2024-03-01", StrongBuy: 12, Buy: 20, Hold: 14, Sell: 2},
		},
		"NVDA": {
			Metrics: &types.TickerMetrics{
				ForwardPE: f(19.5), CurrentPrice: f(100), TargetMeanPrice: f(130),
				TargetHighPrice: f(160), TargetLowPrice: f(100), MarketCap: f(2.4e12),
				InsiderOwnershipPct: f(4.2), InstitutionalOwnershipPct: f(66.1),
			},
			Ratings: &types.AnalystRatings{Period: "2024-03-01", StrongBuy: 24, Buy: 36, Hold: 4},
		},
		"XOM": {
			Metrics: &types.TickerMetrics{
				CurrentPrice: f(110), TargetMeanPrice: f(125), MarketCap: f(4.4e11),
				InsiderOwnershipPct: f(0.08), InstitutionalOwnershipPct: f(62.4),
			},
			Ratings: &types.AnalystRatings{Period: "2024-03-01", StrongBuy: 7, Buy: 9, Hold: 10, Sell: 1},
		},
		"SMCO": {
			Metrics: &types.TickerMetrics{
				ForwardPE: f(12), CurrentPrice: f(20), TargetMeanPrice: f(30),
				TargetLowPrice: f(21), MarketCap: f(2.5e9),
				InsiderOwnershipPct: f(30), InstitutionalOwnershipPct: f(45),
			},
		},
	}
}
