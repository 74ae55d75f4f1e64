package screener

import (
	"context"
	"fmt"
	"strconv"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/types"
)

// Evaluator screens a single ticker against the five criteria.
type Evaluator struct {
	provider interfaces.DataProvider
	criteria Criteria
}

var _ interfaces.Evaluator = (*Evaluator)(nil)

func NewEvaluator(provider interfaces.DataProvider, criteria Criteria) *Evaluator {
	return &Evaluator{provider: provider, criteria: criteria}
}

// Evaluate fetches metrics and ratings once each and grades them. A fetch
// error is returned as is; missing data is graded, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, ticker string, benchmarkForwardPE float64) (*types.ScreeningRecord, error) {
	metrics, err := e.provider.FetchCompanyMetrics(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics for %s: %w", ticker, err)
	}
	ratings, err := e.provider.FetchAnalystRecommendations(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch recommendations for %s: %w", ticker, err)
	}

	record := Assess(ticker, metrics, ratings, benchmarkForwardPE, e.criteria)
	logger.Verdict(ctx, ticker, record.Passed, "markers", record.Markers())
	return &record, nil
}

// Assess grades already fetched data. It has no side effects.
func Assess(ticker string, metrics *types.TickerMetrics, ratings *types.AnalystRatings, benchmarkForwardPE float64, c Criteria) types.ScreeningRecord {
	if metrics == nil {
		metrics = &types.TickerMetrics{}
	}

	checks := []func() (types.ConditionResult, string){
		func() (types.ConditionResult, string) { return checkRatings(ratings, c) },
		func() (types.ConditionResult, string) { return checkMarketCap(metrics, c) },
		func() (types.ConditionResult, string) { return checkPriceTarget(metrics, c) },
		func() (types.ConditionResult, string) { return checkForwardPE(metrics, benchmarkForwardPE) },
		func() (types.ConditionResult, string) { return checkOwnership(metrics, c) },
	}

	record := types.ScreeningRecord{
		Ticker:     ticker,
		Conditions: make([]types.ConditionOutcome, 0, len(checks)),
		Details:    make([]string, 0, len(checks)),
		Passed:     true,
	}
	for i, check := range checks {
		result, detail := check()
		record.Conditions = append(record.Conditions, types.ConditionOutcome{
			Condition: types.Conditions[i],
			Result:    result,
		})
		record.Details = append(record.Details, detail)
		if result != types.ResultPass {
			record.Passed = false
		}
	}
	return record
}

func checkRatings(r *types.AnalystRatings, c Criteria) (types.ConditionResult, string) {
	pct, ok := r.BuyPercentage()
	if !ok {
		return types.ResultFailMissingData, "Buy Ratings: Data unavailable"
	}
	detail := fmt.Sprintf("Buy Ratings: %d analysts, Buy Percentage: %.2f%%", r.Total(), pct)
	if pct < c.MinBuyPercentage {
		return types.ResultFail, detail
	}
	return types.ResultPass, detail
}

// checkMarketCap treats a missing market cap as zero.
func checkMarketCap(m *types.TickerMetrics, c Criteria) (types.ConditionResult, string) {
	var billions float64
	if m.MarketCap != nil {
		billions = *m.MarketCap / 1e9
	}
	detail := fmt.Sprintf("Market Cap: $%.2fB", billions)
	if billions < c.MinMarketCapBillions {
		return types.ResultFail, detail
	}
	return types.ResultPass, detail
}

// checkPriceTarget fails outright, without a missing-data marker, when any
// of current, mean or low is unknown.
func checkPriceTarget(m *types.TickerMetrics, c Criteria) (types.ConditionResult, string) {
	detail := fmt.Sprintf("Price Targets: Current=$%s, Mean=$%s, High=$%s, Low=$%s",
		orNA(m.CurrentPrice), orNA(m.TargetMeanPrice), orNA(m.TargetHighPrice), orNA(m.TargetLowPrice))

	if m.CurrentPrice == nil || m.TargetMeanPrice == nil || m.TargetLowPrice == nil {
		return types.ResultFail, detail
	}
	current := *m.CurrentPrice
	if *m.TargetMeanPrice <= current*c.MinTargetUpside || *m.TargetLowPrice < current {
		return types.ResultFail, detail
	}
	return types.ResultPass, detail
}

// checkForwardPE passes only when forward P/E is strictly below the benchmark.
func checkForwardPE(m *types.TickerMetrics, benchmark float64) (types.ConditionResult, string) {
	pe := "N/A"
	if m.ForwardPE != nil {
		pe = strconv.FormatFloat(*m.ForwardPE, 'f', 2, 64)
	}
	detail := fmt.Sprintf("Forward PE: %s (Benchmark: %s)", pe, strconv.FormatFloat(benchmark, 'f', -1, 64))

	if m.ForwardPE == nil {
		return types.ResultFailMissingData, detail
	}
	if *m.ForwardPE >= benchmark {
		return types.ResultFail, detail
	}
	return types.ResultPass, detail
}

func checkOwnership(m *types.TickerMetrics, c Criteria) (types.ConditionResult, string) {
	insider, institutional := m.InsiderOwnershipPct, m.InstitutionalOwnershipPct
	if insider == nil || institutional == nil {
		return types.ResultFailMissingData, fmt.Sprintf("Ownership: Data unavailable (Insider: %s%%, Institutional: %s%%)",
			orNA(insider), orNA(institutional))
	}

	total := *insider + *institutional
	detail := fmt.Sprintf("Ownership: Total %.2f%%, Insider: %.2f%%, Institutional: %.2f%%", total, *insider, *institutional)
	if total < c.MinOwnershipPct {
		return types.ResultFail, detail
	}
	return types.ResultPass, detail
}

// orNA formats an optional value with two decimals.
func orNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
