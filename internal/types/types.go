package types

// TickerMetrics holds the fundamentals fetched for one ticker.
// A nil field means the provider had no value for it.
type TickerMetrics struct {
	ForwardPE                 *float64 `json:"forward_pe,omitempty"`
	TargetMeanPrice           *float64 `json:"target_mean_price,omitempty"`
	TargetHighPrice           *float64 `json:"target_high_price,omitempty"`
	TargetLowPrice            *float64 `json:"target_low_price,omitempty"`
	CurrentPrice              *float64 `json:"current_price,omitempty"`
	MarketCap                 *float64 `json:"market_cap,omitempty"`
	InsiderOwnershipPct       *float64 `json:"insider_ownership_pct,omitempty"`
	InstitutionalOwnershipPct *float64 `json:"institutional_ownership_pct,omitempty"`
}

// Float returns a pointer to v, for populating optional metrics.
func Float(v float64) *float64 {
	return &v
}

// Empty reports whether no field is populated.
func (m *TickerMetrics) Empty() bool {
	if m == nil {
		return true
	}
	return m.ForwardPE == nil && m.TargetMeanPrice == nil && m.TargetHighPrice == nil &&
		m.TargetLowPrice == nil && m.CurrentPrice == nil && m.MarketCap == nil &&
		m.InsiderOwnershipPct == nil && m.InstitutionalOwnershipPct == nil
}

// Merge fills the nil fields of m from other. Fields already set win.
func (m *TickerMetrics) Merge(other *TickerMetrics) {
	if other == nil {
		return
	}
	fill := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
		}
	}
	fill(&m.ForwardPE, other.ForwardPE)
	fill(&m.TargetMeanPrice, other.TargetMeanPrice)
	fill(&m.TargetHighPrice, other.TargetHighPrice)
	fill(&m.TargetLowPrice, other.TargetLowPrice)
	fill(&m.CurrentPrice, other.CurrentPrice)
	fill(&m.MarketCap, other.MarketCap)
	fill(&m.InsiderOwnershipPct, other.InsiderOwnershipPct)
	fill(&m.InstitutionalOwnershipPct, other.InstitutionalOwnershipPct)
}

// AnalystRatings is the latest recommendation-trend record for a ticker.
type AnalystRatings struct {
	Period     string `json:"period,omitempty"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

func (r *AnalystRatings) Total() int {
	if r == nil {
		return 0
	}
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// BuyPercentage returns the share of buy and strong-buy ratings in [0,100].
// ok is false when there are no ratings at all.
func (r *AnalystRatings) BuyPercentage() (pct float64, ok bool) {
	total := r.Total()
	if total == 0 {
		return 0, false
	}
	return float64(r.Buy+r.StrongBuy) / float64(total) * 100, true
}
