// Package provider adapts the market data sources used by the screener:
// Yahoo for fundamentals, Finnhub for analyst recommendations, plus a
// fixture-backed mock, a response cache and a retrying wrapper.
package provider

import (
	"stock-screener/internal/interfaces"
)

type combined struct {
	interfaces.MetricsProvider
	interfaces.RatingsProvider
}

// Combine pairs a fundamentals source with a recommendations source.
func Combine(metrics interfaces.MetricsProvider, ratings interfaces.RatingsProvider) interfaces.DataProvider {
	return combined{MetricsProvider: metrics, RatingsProvider: ratings}
}
