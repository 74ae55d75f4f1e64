package providerobs

import (
	"context"
	"time"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/trace"
	"stock-screener/internal/types"
)

// observableProvider wraps a DataProvider with logging and tracing
type observableProvider struct {
	name  string
	inner interfaces.DataProvider
}

var _ interfaces.DataProvider = (*observableProvider)(nil)

// Wrap wraps a DataProvider with observability middleware. name tags the
// spans and log lines (e.g. "yahoo+finnhub", "mock").
func Wrap(name string, p interfaces.DataProvider) interfaces.DataProvider {
	return &observableProvider{name: name, inner: p}
}

func (o *observableProvider) FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	ctx, span := trace.StartSpan(ctx, "provider.FetchCompanyMetrics")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(trace.Attributes("provider", o.name, "ticker", ticker)...)
	}

	start := time.Now()
	m, err := o.inner.FetchCompanyMetrics(ctx, ticker)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Metrics fetch failed", err,
			"provider", o.name, "ticker", ticker, "duration_ms", elapsed)
		return nil, err
	}
	if m.Empty() {
		logger.WarnSkip(ctx, 1, "No metrics returned",
			"provider", o.name, "ticker", ticker, "duration_ms", elapsed)
		return m, nil
	}

	logger.DebugSkip(ctx, 1, "Metrics fetched",
		"provider", o.name,
		"ticker", ticker,
		"duration_ms", elapsed,
		"has_forward_pe", m.ForwardPE != nil,
		"has_market_cap", m.MarketCap != nil,
		"has_price_targets", m.TargetMeanPrice != nil && m.TargetLowPrice != nil,
		"has_ownership", m.InsiderOwnershipPct != nil && m.InstitutionalOwnershipPct != nil,
	)
	return m, nil
}

func (o *observableProvider) FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error) {
	ctx, span := trace.StartSpan(ctx, "provider.FetchAnalystRecommendations")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(trace.Attributes("provider", o.name, "ticker", ticker)...)
	}

	start := time.Now()
	r, err := o.inner.FetchAnalystRecommendations(ctx, ticker)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Recommendations fetch failed", err,
			"provider", o.name, "ticker", ticker, "duration_ms", elapsed)
		return nil, err
	}
	if r == nil {
		logger.WarnSkip(ctx, 1, "No recommendations returned",
			"provider", o.name, "ticker", ticker, "duration_ms", elapsed)
		return nil, nil
	}

	logger.DebugSkip(ctx, 1, "Recommendations fetched",
		"provider", o.name,
		"ticker", ticker,
		"duration_ms", elapsed,
		"period", r.Period,
		"total", r.Total(),
	)
	return r, nil
}
