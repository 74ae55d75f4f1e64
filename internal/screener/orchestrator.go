package screener

import (
	"context"
	"errors"
	"fmt"
	"math"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/provider"
	"stock-screener/internal/retry"
	"stock-screener/internal/types"
)

// Orchestrator screens a ticker list one ticker at a time.
type Orchestrator struct {
	evaluator interfaces.Evaluator
	pacing    Pacing
	sleeper   retry.Sleeper
}

var _ interfaces.Screener = (*Orchestrator)(nil)

type Option func(*Orchestrator)

// WithSleeper replaces the pacing sleeper, mainly for tests.
func WithSleeper(s retry.Sleeper) Option {
	return func(o *Orchestrator) {
		o.sleeper = s
	}
}

func NewOrchestrator(evaluator interfaces.Evaluator, pacing Pacing, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		evaluator: evaluator,
		pacing:    pacing,
		sleeper:   retry.BlockingSleeper{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PrepareInput normalizes tickers and checks the benchmark. Blank entries
// are dropped, duplicates kept. Errors wrap ErrInvalidInput.
func PrepareInput(tickers []string, benchmarkForwardPE float64) ([]string, error) {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = provider.NormalizeTicker(t)
		if t == "" {
			continue
		}
		if err := provider.ValidateTicker(t); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no tickers given", ErrInvalidInput)
	}
	if math.IsNaN(benchmarkForwardPE) || math.IsInf(benchmarkForwardPE, 0) || benchmarkForwardPE <= 0 {
		return nil, fmt.Errorf("%w: benchmark forward PE must be a positive number, got %v", ErrInvalidInput, benchmarkForwardPE)
	}
	return out, nil
}

// Run screens tickers in input order and returns one record per ticker.
// A ticker that cannot be evaluated gets an all-Fail placeholder; only
// invalid input or a cancelled context stops the run.
func (o *Orchestrator) Run(ctx context.Context, tickers []string, benchmarkForwardPE float64, onProgress interfaces.ProgressFunc) ([]types.ScreeningRecord, error) {
	tickers, err := PrepareInput(tickers, benchmarkForwardPE)
	if err != nil {
		return nil, err
	}

	total := len(tickers)
	records := make([]types.ScreeningRecord, 0, total)

	for i, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("screening stopped after %d of %d tickers: %w", i, total, err)
		}

		logger.Debug(ctx, "Screening ticker", "ticker", ticker, "position", i+1, "total", total)
		records = append(records, o.evaluate(ctx, ticker, benchmarkForwardPE))

		completed := i + 1
		if onProgress != nil {
			onProgress(completed, total)
		}

		if d := o.pacing.Delay(completed, total); d > 0 {
			o.sleeper.Sleep(ctx, d)
		}
	}
	return records, nil
}

func (o *Orchestrator) evaluate(ctx context.Context, ticker string, benchmark float64) (record types.ScreeningRecord) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while screening: %v", r)
			logger.ErrorWithErr(ctx, "Ticker evaluation panicked", err, "ticker", ticker)
			record = types.PlaceholderRecord(ticker, err)
		}
	}()

	rec, err := o.evaluator.Evaluate(ctx, ticker, benchmark)
	if err == nil && rec == nil {
		err = errors.New("no record produced")
	}
	if err != nil {
		logger.Warn(ctx, "Ticker evaluation failed, recording placeholder", "ticker", ticker, "error", err)
		return types.PlaceholderRecord(ticker, err)
	}
	return *rec
}
