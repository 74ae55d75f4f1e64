package screener

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-screener/internal/provider"
	"stock-screener/internal/retry"
	"stock-screener/internal/types"
)

type evaluatorFunc func(ctx context.Context, ticker string, benchmark float64) (*types.ScreeningRecord, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, ticker string, benchmark float64) (*types.ScreeningRecord, error) {
	return f(ctx, ticker, benchmark)
}

type sleepLog struct {
	sleeps []time.Duration
}

func (s *sleepLog) Sleep(_ context.Context, d time.Duration) {
	s.sleeps = append(s.sleeps, d)
}

func TestRun_ErroringTickerBecomesPlaceholder(t *testing.T) {
	mock := provider.NewMock()
	mock.Set("AAA", provider.Fixture{Err: errors.New("upstream exploded")})
	mock.Set("BBB", provider.Fixture{Metrics: passingMetrics(), Ratings: passingRatings()})

	sleeps := &sleepLog{}
	o := NewOrchestrator(NewEvaluator(mock, DefaultCriteria()), DefaultPacing(), WithSleeper(sleeps))

	var progress [][2]int
	records, err := o.Run(context.Background(), []string{"AAA", "BBB"}, 25, func(completed, total int) {
		progress = append(progress, [2]int{completed, total})
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	aaa := records[0]
	assert.Equal(t, "AAA", aaa.Ticker)
	assert.False(t, aaa.Passed)
	assert.Equal(t, []string{"❌", "❌", "❌", "❌", "❌"}, aaa.Markers())
	require.Len(t, aaa.Details, 1)
	assert.Contains(t, aaa.Details[0], "Error: ")
	assert.Contains(t, aaa.Details[0], "upstream exploded")

	bbb := records[1]
	assert.Equal(t, "BBB", bbb.Ticker)
	assert.True(t, bbb.Passed)

	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
	assert.Equal(t, []time.Duration{800 * time.Millisecond}, sleeps.sleeps)
	assert.Equal(t, []string{"BBB"}, types.BuyCandidates(records))
}

func TestRun_PanicBecomesPlaceholder(t *testing.T) {
	ev := evaluatorFunc(func(_ context.Context, ticker string, _ float64) (*types.ScreeningRecord, error) {
		if ticker == "BAD" {
			panic("index out of range")
		}
		r := Assess(ticker, passingMetrics(), passingRatings(), 25, DefaultCriteria())
		return &r, nil
	})
	o := NewOrchestrator(ev, Pacing{}, WithSleeper(&sleepLog{}))

	records, err := o.Run(context.Background(), []string{"GOOD", "BAD", "GOOD"}, 25, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].Passed)
	assert.False(t, records[1].Passed)
	assert.Contains(t, records[1].Details[0], "index out of range")
	assert.True(t, records[2].Passed)
}

func TestRun_KeepsOrderAndDuplicates(t *testing.T) {
	o := NewOrchestrator(NewEvaluator(provider.NewDemoMock(), DefaultCriteria()), Pacing{}, WithSleeper(&sleepLog{}))

	records, err := o.Run(context.Background(), []string{" msft", "aapl ", "", "MSFT"}, 25, nil)
	require.NoError(t, err)

	tickers := make([]string, len(records))
	for i, r := range records {
		tickers[i] = r.Ticker
	}
	assert.Equal(t, []string{"MSFT", "AAPL", "MSFT"}, tickers)
	assert.Equal(t, []string{"MSFT", "MSFT"}, types.BuyCandidates(records))
}

func TestRun_InvalidInput(t *testing.T) {
	called := false
	ev := evaluatorFunc(func(context.Context, string, float64) (*types.ScreeningRecord, error) {
		called = true
		return nil, nil
	})
	o := NewOrchestrator(ev, DefaultPacing(), WithSleeper(&sleepLog{}))

	cases := []struct {
		name      string
		tickers   []string
		benchmark float64
	}{
		{"no tickers", nil, 25},
		{"only blanks", []string{" ", ""}, 25},
		{"zero benchmark", []string{"AAPL"}, 0},
		{"negative benchmark", []string{"AAPL"}, -3},
		{"NaN benchmark", []string{"AAPL"}, math.NaN()},
		{"infinite benchmark", []string{"AAPL"}, math.Inf(1)},
		{"bad symbol", []string{"AAPL", "DROP TABLE"}, 25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.Run(context.Background(), tc.tickers, tc.benchmark, nil)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.False(t, called, "validation must happen before any fetch")
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := evaluatorFunc(func(_ context.Context, ticker string, _ float64) (*types.ScreeningRecord, error) {
		cancel()
		r := types.PlaceholderRecord(ticker, nil)
		return &r, nil
	})
	o := NewOrchestrator(ev, Pacing{}, WithSleeper(&sleepLog{}))

	records, err := o.Run(ctx, []string{"A", "B", "C"}, 25, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, records, 1)
}

func TestRun_ResilientProviderNeverFailsTicker(t *testing.T) {
	mock := provider.NewMock()
	mock.Set("AAA", provider.Fixture{Err: &retry.RateLimitError{Provider: "test"}})

	exec := retry.NewExecutor(retry.NewConfig(3, time.Millisecond), retry.WithSleeper(&sleepLog{}))
	ev := NewEvaluator(provider.NewResilient(mock, exec), DefaultCriteria())
	o := NewOrchestrator(ev, Pacing{}, WithSleeper(&sleepLog{}))

	records, err := o.Run(context.Background(), []string{"AAA"}, 25, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	// throttled out: graded as missing data rather than a placeholder
	assert.Empty(t, records[0].Error)
	assert.Equal(t, types.ResultFailMissingData, records[0].Conditions[0].Result)
	assert.Equal(t, 6, mock.Calls("AAA"))
}
