package provider

import (
	"context"

	"stock-screener/internal/cache"
	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/types"
)

// Cached serves recent provider responses from the file cache. Only
// populated responses are stored so a miss is always retried upstream.
type Cached struct {
	inner interfaces.DataProvider
	cache *cache.Cache
}

func NewCached(inner interfaces.DataProvider, c *cache.Cache) *Cached {
	return &Cached{inner: inner, cache: c}
}

func (c *Cached) FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	key := cache.Key("metrics", ticker)
	var m types.TickerMetrics
	if c.cache.GetJSON(key, &m) {
		logger.Debug(ctx, "Metrics served from cache", "ticker", ticker)
		return &m, nil
	}

	fresh, err := c.inner.FetchCompanyMetrics(ctx, ticker)
	if err != nil || fresh.Empty() {
		return fresh, err
	}
	if err := c.cache.SetJSON(key, fresh); err != nil {
		logger.Warn(ctx, "Failed to cache metrics", "ticker", ticker, "error", err)
	}
	return fresh, nil
}

func (c *Cached) FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error) {
	key := cache.Key("ratings", ticker)
	var r types.AnalystRatings
	if c.cache.GetJSON(key, &r) {
		logger.Debug(ctx, "Ratings served from cache", "ticker", ticker)
		return &r, nil
	}

	fresh, err := c.inner.FetchAnalystRecommendations(ctx, ticker)
	if err != nil || fresh == nil {
		return fresh, err
	}
	if err := c.cache.SetJSON(key, fresh); err != nil {
		logger.Warn(ctx, "Failed to cache ratings", "ticker", ticker, "error", err)
	}
	return fresh, nil
}
