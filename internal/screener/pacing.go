package screener

import "time"

// Pacing spaces out tickers to stay under provider rate limits. After every
// BatchSize-th ticker the pause is BatchPause instead of Interval. With
// BatchSize 0 every gap is Interval.
type Pacing struct {
	Interval   time.Duration
	BatchSize  int
	BatchPause time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		Interval:   800 * time.Millisecond,
		BatchSize:  10,
		BatchPause: 3 * time.Second,
	}
}

// Delay returns the pause after completed of total tickers. There is no
// pause after the last one.
func (p Pacing) Delay(completed, total int) time.Duration {
	if completed <= 0 || completed >= total {
		return 0
	}
	if p.BatchSize > 0 && completed%p.BatchSize == 0 {
		return p.BatchPause
	}
	return p.Interval
}
