package screenerobs

import (
	"context"
	"time"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/trace"
	"stock-screener/internal/types"
)

// observableScreener wraps Screener with logging and tracing
type observableScreener struct {
	inner interfaces.Screener
}

var _ interfaces.Screener = (*observableScreener)(nil)

// Wrap wraps a Screener with observability middleware
func Wrap(s interfaces.Screener) interfaces.Screener {
	return &observableScreener{inner: s}
}

func (o *observableScreener) Run(ctx context.Context, tickers []string, benchmarkForwardPE float64, onProgress interfaces.ProgressFunc) ([]types.ScreeningRecord, error) {
	ctx, span := trace.StartSpan(ctx, "screener.Run")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(trace.Attributes("ticker_count", len(tickers), "benchmark_forward_pe", benchmarkForwardPE)...)
	}

	logger.InfoSkip(ctx, 1, "Starting screen", "ticker_count", len(tickers), "benchmark_forward_pe", benchmarkForwardPE)
	start := time.Now()

	records, err := o.inner.Run(ctx, tickers, benchmarkForwardPE, onProgress)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Screen failed", err, "duration_ms", elapsed, "screened", len(records))
		return records, err
	}

	buys := types.BuyCandidates(records)
	placeholders := 0
	for _, r := range records {
		if r.Error != "" {
			placeholders++
		}
	}
	logger.InfoSkip(ctx, 1, "Screen completed",
		"duration_ms", elapsed,
		"screened", len(records),
		"buy_candidates", len(buys),
		"errors", placeholders,
	)
	return records, nil
}

// observableEvaluator wraps Evaluator with logging and tracing
type observableEvaluator struct {
	inner interfaces.Evaluator
}

var _ interfaces.Evaluator = (*observableEvaluator)(nil)

func WrapEvaluator(e interfaces.Evaluator) interfaces.Evaluator {
	return &observableEvaluator{inner: e}
}

func (o *observableEvaluator) Evaluate(ctx context.Context, ticker string, benchmarkForwardPE float64) (*types.ScreeningRecord, error) {
	ctx, span := trace.StartSpan(ctx, "screener.Evaluate")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(trace.Attributes("ticker", ticker)...)
	}

	start := time.Now()
	rec, err := o.inner.Evaluate(ctx, ticker, benchmarkForwardPE)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation failed", err, "ticker", ticker, "duration_ms", elapsed)
		return nil, err
	}
	if trace.Enabled() {
		span.SetAttributes(trace.Attributes("passed", rec.Passed)...)
	}
	logger.DebugSkip(ctx, 1, "Evaluation completed", "ticker", ticker, "passed", rec.Passed, "duration_ms", elapsed)
	return rec, nil
}
