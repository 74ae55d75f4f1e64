package provider

import (
	"context"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/retry"
	"stock-screener/internal/types"
)

// Resilient retries the wrapped provider. Exhausted retries and permanent
// failures come back as nil data with a nil error.
type Resilient struct {
	inner interfaces.DataProvider
	exec  *retry.Executor
}

func NewResilient(inner interfaces.DataProvider, exec *retry.Executor) *Resilient {
	return &Resilient{inner: inner, exec: exec}
}

func (r *Resilient) FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	m, ok := retry.Do(ctx, r.exec, "metrics "+ticker,
		func(ctx context.Context) (*types.TickerMetrics, error) {
			return r.inner.FetchCompanyMetrics(ctx, ticker)
		},
		func(m *types.TickerMetrics) bool { return m.Empty() },
	)
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (r *Resilient) FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error) {
	ratings, ok := retry.Do(ctx, r.exec, "ratings "+ticker,
		func(ctx context.Context) (*types.AnalystRatings, error) {
			return r.inner.FetchAnalystRecommendations(ctx, ticker)
		},
		nil,
	)
	if !ok {
		return nil, nil
	}
	return ratings, nil
}
