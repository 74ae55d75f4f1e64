package types

import "fmt"

// Condition names one of the five screening checks, in report order.
type Condition string

const (
	ConditionAnalystRatings Condition = "analyst_ratings"
	ConditionMarketCap      Condition = "market_cap"
	ConditionPriceTarget    Condition = "price_target"
	ConditionForwardPE      Condition = "forward_pe"
	ConditionOwnership      Condition = "ownership"
)

// Conditions lists every check in evaluation order.
var Conditions = []Condition{
	ConditionAnalystRatings,
	ConditionMarketCap,
	ConditionPriceTarget,
	ConditionForwardPE,
	ConditionOwnership,
}

type ConditionResult string

const (
	ResultPass            ConditionResult = "PASS"
	ResultFail            ConditionResult = "FAIL"
	ResultFailMissingData ConditionResult = "FAIL_MISSING_DATA"
)

const (
	MarkerPass = "✔️"
	MarkerFail = "❌"
)

// missingReasons is the suffix shown when a check fails for lack of data.
var missingReasons = map[Condition]string{
	ConditionAnalystRatings: "Ratings Unavailable",
	ConditionForwardPE:      "Missing Forward PE",
	ConditionOwnership:      "Ownership Data Unavailable",
}

// ConditionOutcome is the result of one check for one ticker.
type ConditionOutcome struct {
	Condition Condition       `json:"condition"`
	Result    ConditionResult `json:"result"`
}

func (o ConditionOutcome) Passed() bool {
	return o.Result == ResultPass
}

// Marker renders the outcome the way the report shows it.
func (o ConditionOutcome) Marker() string {
	switch o.Result {
	case ResultPass:
		return MarkerPass
	case ResultFailMissingData:
		if reason, ok := missingReasons[o.Condition]; ok {
			return fmt.Sprintf("%s (%s)", MarkerFail, reason)
		}
		return MarkerFail
	default:
		return MarkerFail
	}
}

// ScreeningRecord is the outcome of screening one ticker in one run.
// Records are never modified once built.
type ScreeningRecord struct {
	Ticker     string             `json:"ticker"`
	Conditions []ConditionOutcome `json:"conditions"`
	Details    []string           `json:"details"`
	Passed     bool               `json:"passed"`
	Error      string             `json:"error,omitempty"`
}

// Markers returns one marker per condition, in order.
func (r *ScreeningRecord) Markers() []string {
	out := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		out[i] = c.Marker()
	}
	return out
}

// PlaceholderRecord is the all-Fail record used when a ticker could not be
// screened at all.
func PlaceholderRecord(ticker string, err error) ScreeningRecord {
	conds := make([]ConditionOutcome, len(Conditions))
	for i, c := range Conditions {
		conds[i] = ConditionOutcome{Condition: c, Result: ResultFail}
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ScreeningRecord{
		Ticker:     ticker,
		Conditions: conds,
		Details:    []string{"Error: " + msg},
		Passed:     false,
		Error:      msg,
	}
}

// BuyCandidates returns, in order, the tickers whose records passed.
func BuyCandidates(records []ScreeningRecord) []string {
	out := make([]string, 0)
	for _, r := range records {
		if r.Passed {
			out = append(out, r.Ticker)
		}
	}
	return out
}
