package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	finance "github.com/piquette/finance-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-screener/internal/retry"
)

const aaplSummary = `{"quoteSummary":{"result":[{
	"financialData":{
		"currentPrice":{"raw":180.5,"fmt":"180.50"},
		"targetMeanPrice":{"raw":210,"fmt":"210.00"},
		"targetHighPrice":{"raw":250,"fmt":"250.00"},
		"targetLowPrice":{"raw":160,"fmt":"160.00"}
	},
	"defaultKeyStatistics":{
		"forwardPE":{"raw":27.5,"fmt":"27.50"},
		"heldPercentInsiders":{"raw":0.0007,"fmt":"0.07%"},
		"heldPercentInstitutions":{"raw":0.615,"fmt":"61.50%"}
	},
	"price":{"marketCap":{"raw":2800000000000,"fmt":"2.8T"}}
}],"error":null}}`

const testCrumb = "Xy7.crumb/1"

// yahooSession serves the cookie page and crumb endpoint and counts the
// handshakes. Everything else goes to next.
type yahooSession struct {
	mu         sync.Mutex
	crumb      string
	handshakes int
	next       http.HandlerFunc
}

func (s *yahooSession) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/cookie":
		http.SetCookie(w, &http.Cookie{Name: "A1", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	case crumbPath:
		if _, err := r.Cookie("A1"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.handshakes++
		crumb := s.crumb
		s.mu.Unlock()
		_, _ = w.Write([]byte(crumb))
	default:
		s.next(w, r)
	}
}

func (s *yahooSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handshakes
}

func newYahooServer(t *testing.T, session *yahooSession, eq EquityFunc) *Yahoo {
	t.Helper()
	if session.crumb == "" {
		session.crumb = testCrumb
	}
	srv := httptest.NewServer(session)
	t.Cleanup(srv.Close)
	return NewYahoo(WithYahooBaseURL(srv.URL), WithYahooCookieURL(srv.URL+"/cookie"), WithEquityFallback(eq))
}

func newTestYahoo(t *testing.T, handler http.HandlerFunc, eq EquityFunc) *Yahoo {
	t.Helper()
	return newYahooServer(t, &yahooSession{next: handler}, eq)
}

func TestYahoo_QuoteSummary(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Equal(t, quoteSummaryModules, r.URL.Query().Get("modules"))
		assert.Equal(t, testCrumb, r.URL.Query().Get("crumb"))
		_, _ = w.Write([]byte(aaplSummary))
	}, nil)

	m, err := y.FetchCompanyMetrics(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.InDelta(t, 180.5, *m.CurrentPrice, 1e-9)
	assert.InDelta(t, 210, *m.TargetMeanPrice, 1e-9)
	assert.InDelta(t, 160, *m.TargetLowPrice, 1e-9)
	assert.InDelta(t, 27.5, *m.ForwardPE, 1e-9)
	assert.InDelta(t, 2.8e12, *m.MarketCap, 1)
	// fractions become percentages
	assert.InDelta(t, 0.07, *m.InsiderOwnershipPct, 1e-9)
	assert.InDelta(t, 61.5, *m.InstitutionalOwnershipPct, 1e-9)
}

func TestYahoo_EmptyValuesStayAbsent(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"financialData":{"currentPrice":{"raw":10},"targetMeanPrice":{},"targetLowPrice":{}},
			"defaultKeyStatistics":{"forwardPE":{},"heldPercentInsiders":{"raw":0.1}}
		}],"error":null}}`))
	}, nil)

	m, err := y.FetchCompanyMetrics(context.Background(), "XYZ")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Nil(t, m.ForwardPE)
	assert.Nil(t, m.TargetMeanPrice)
	assert.Nil(t, m.MarketCap)
	assert.Nil(t, m.InstitutionalOwnershipPct)
	assert.InDelta(t, 10.0, *m.InsiderOwnershipPct, 1e-9)
}

func TestYahoo_EquityFillsGaps(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"financialData":{"targetMeanPrice":{"raw":120}}
		}],"error":null}}`))
	}, func(symbol string) (*finance.Equity, error) {
		assert.Equal(t, "MSFT", symbol)
		return &finance.Equity{
			Quote:     finance.Quote{RegularMarketPrice: 100},
			ForwardPE: 21,
			MarketCap: 3000000000000,
		}, nil
	})

	m, err := y.FetchCompanyMetrics(context.Background(), "MSFT")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.InDelta(t, 120, *m.TargetMeanPrice, 1e-9)
	assert.InDelta(t, 100, *m.CurrentPrice, 1e-9)
	assert.InDelta(t, 21, *m.ForwardPE, 1e-9)
	assert.InDelta(t, 3e12, *m.MarketCap, 1)
}

func TestYahoo_NoResultIsNoData(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[],"error":null}}`))
	}, func(string) (*finance.Equity, error) {
		return nil, errors.New("quote unavailable")
	})

	m, err := y.FetchCompanyMetrics(context.Background(), "NONE")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestYahoo_NotFoundIsPermanent(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for ticker symbol: NOPE"}}}`))
	}, nil)

	_, err := y.FetchCompanyMetrics(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, retry.OutcomeFatal, retry.Classify(err))
}

func TestYahoo_CrumbIsFetchedOnceAndReused(t *testing.T) {
	session := &yahooSession{next: func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crumb") != testCrumb {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"finance":{"error":{"code":"Unauthorized","description":"Invalid Crumb"}}}`))
			return
		}
		_, _ = w.Write([]byte(aaplSummary))
	}}
	y := newYahooServer(t, session, nil)

	for i := 0; i < 3; i++ {
		m, err := y.FetchCompanyMetrics(context.Background(), "AAPL")
		require.NoError(t, err)
		require.NotNil(t, m)
	}
	assert.Equal(t, 1, session.count())
}

func TestYahoo_RejectedCrumbIsRenewedOnce(t *testing.T) {
	var summaries atomic.Int32
	session := &yahooSession{crumb: "stale"}
	session.next = func(w http.ResponseWriter, r *http.Request) {
		summaries.Add(1)
		if r.URL.Query().Get("crumb") != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(aaplSummary))
	}
	y := newYahooServer(t, session, nil)

	// expire the session after the first handshake
	_, err := y.sessionCrumb(context.Background())
	require.NoError(t, err)
	session.mu.Lock()
	session.crumb = "fresh"
	session.mu.Unlock()

	m, err := y.FetchCompanyMetrics(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, session.count())
	assert.EqualValues(t, 2, summaries.Load())
}

func TestYahoo_PersistentUnauthorizedStopsAfterOneRenewal(t *testing.T) {
	var summaries atomic.Int32
	session := &yahooSession{next: func(w http.ResponseWriter, r *http.Request) {
		summaries.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}}
	y := newYahooServer(t, session, nil)

	_, err := y.FetchCompanyMetrics(context.Background(), "AAPL")
	require.Error(t, err)
	assert.EqualValues(t, 2, summaries.Load())
	assert.Equal(t, 2, session.count())
}

func TestYahoo_HTMLCrumbIsRejected(t *testing.T) {
	session := &yahooSession{
		crumb: "<html><body>consent</body></html>",
		next: func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("summary must not be requested without a crumb, got %s", r.URL.Path)
		},
	}
	y := newYahooServer(t, session, nil)

	_, err := y.FetchCompanyMetrics(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid crumb")
	assert.Equal(t, retry.OutcomeTransient, retry.Classify(err))
}

func TestYahoo_ShareClassTickers(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/BRK-B", r.URL.Path)
		_, _ = w.Write([]byte(aaplSummary))
	}, nil)

	m, err := y.FetchCompanyMetrics(context.Background(), "BRK.B")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "BF-B", YahooSymbol("BF.B"))
	assert.Equal(t, "MSFT", YahooSymbol("MSFT"))
}
