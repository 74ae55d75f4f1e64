package interfaces

import (
	"context"

	"stock-screener/internal/types"
)

// MetricsProvider returns fundamentals for a ticker. A nil result with a nil
// error means the provider had nothing for it.
type MetricsProvider interface {
	FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error)
}

// RatingsProvider returns the latest analyst recommendation trend.
type RatingsProvider interface {
	FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error)
}

// DataProvider serves both halves of the data a screen needs.
type DataProvider interface {
	MetricsProvider
	RatingsProvider
}
