package interfaces

import (
	"context"

	"stock-screener/internal/types"
)

// ProgressFunc is called after each ticker with the number done so far.
type ProgressFunc func(completed, total int)

type Evaluator interface {
	Evaluate(ctx context.Context, ticker string, benchmarkForwardPE float64) (*types.ScreeningRecord, error)
}

type Screener interface {
	// Run screens tickers in order and returns one record per ticker.
	Run(ctx context.Context, tickers []string, benchmarkForwardPE float64, onProgress ProgressFunc) ([]types.ScreeningRecord, error)
}
