package screener

// Criteria holds the pass thresholds of the five checks.
type Criteria struct {
	MinBuyPercentage     float64 // analyst buy + strong buy share, percent
	MinMarketCapBillions float64
	MinTargetUpside      float64 // mean target must exceed price times this
	MinOwnershipPct      float64 // insider + institutional, percent
}

func DefaultCriteria() Criteria {
	return Criteria{
		MinBuyPercentage:     70,
		MinMarketCapBillions: 100,
		MinTargetUpside:      1.15,
		MinOwnershipPct:      70,
	}
}
