package provider

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-screener/internal/cache"
	"stock-screener/internal/retry"
	"stock-screener/internal/types"
)

func noSleep() *retry.Executor {
	return retry.NewExecutor(retry.NewConfig(3, time.Millisecond),
		retry.WithSleeper(retry.SleeperFunc(func(context.Context, time.Duration) {})))
}

func TestResilient_ErrorsCollapseToNoData(t *testing.T) {
	mock := NewMock()
	mock.Set("AAA", Fixture{Err: errors.New("connection reset")})

	r := NewResilient(mock, noSleep())

	m, err := r.FetchCompanyMetrics(context.Background(), "AAA")
	assert.NoError(t, err)
	assert.Nil(t, m)

	rt, err := r.FetchAnalystRecommendations(context.Background(), "AAA")
	assert.NoError(t, err)
	assert.Nil(t, rt)

	// three attempts for each of the two fetches
	assert.Equal(t, 6, mock.Calls("AAA"))
}

func TestResilient_PermanentStopsAfterOneCall(t *testing.T) {
	mock := NewMock()
	mock.Set("AAA", Fixture{Err: retry.Permanent(errors.New("bad key"))})

	r := NewResilient(mock, noSleep())
	m, err := r.FetchCompanyMetrics(context.Background(), "AAA")
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 1, mock.Calls("AAA"))
}

func TestResilient_PassesDataThrough(t *testing.T) {
	mock := NewDemoMock()
	r := NewResilient(mock, noSleep())

	m, err := r.FetchCompanyMetrics(context.Background(), "MSFT")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.InDelta(t, 22.4, *m.ForwardPE, 1e-9)
	assert.Equal(t, 1, mock.Calls("MSFT"))
}

func TestCached_ServesRepeatFetchesFromCache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"), time.Minute)
	require.NoError(t, err)

	mock := NewMock()
	mock.Set("MSFT", Fixture{
		Metrics: &types.TickerMetrics{ForwardPE: types.Float(20)},
		Ratings: &types.AnalystRatings{Buy: 3, Hold: 1},
	})
	p := NewCached(mock, c)

	for i := 0; i < 2; i++ {
		m, err := p.FetchCompanyMetrics(context.Background(), "MSFT")
		require.NoError(t, err)
		assert.InDelta(t, 20, *m.ForwardPE, 1e-9)

		r, err := p.FetchAnalystRecommendations(context.Background(), "MSFT")
		require.NoError(t, err)
		assert.Equal(t, 4, r.Total())
	}
	assert.Equal(t, 2, mock.Calls("MSFT"))
}

func TestCached_DoesNotStoreEmptyResults(t *testing.T) {
	c, err := cache.New(t.TempDir(), time.Minute)
	require.NoError(t, err)

	mock := NewMock()
	p := NewCached(mock, c)

	for i := 0; i < 2; i++ {
		m, err := p.FetchCompanyMetrics(context.Background(), "NONE")
		require.NoError(t, err)
		assert.Nil(t, m)
	}
	assert.Equal(t, 2, mock.Calls("NONE"))
}
