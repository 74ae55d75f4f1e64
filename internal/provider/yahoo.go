package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"

	"stock-screener/internal/logger"
	"stock-screener/internal/types"
)

const (
	YahooBaseURL = "https://query2.finance.yahoo.com"
	// Visiting this host sets the A1 session cookie the crumb is bound to.
	YahooCookieURL = "https://fc.yahoo.com"

	crumbPath = "/v1/test/getcrumb"

	quoteSummaryPath    = "/v10/finance/quoteSummary/{ticker}"
	quoteSummaryModules = "financialData,defaultKeyStatistics,price"
)

// EquityFunc looks up a quote snapshot, normally equity.Get.
type EquityFunc func(symbol string) (*finance.Equity, error)

// Yahoo serves fundamentals from the quoteSummary endpoint, filling gaps in
// forward P/E, market cap and price from the equity quote.
type Yahoo struct {
	client    *resty.Client
	equity    EquityFunc
	cookieURL string

	mu    sync.Mutex
	crumb string
}

type YahooOption func(*Yahoo)

func WithYahooBaseURL(baseURL string) YahooOption {
	return func(y *Yahoo) {
		y.client.SetBaseURL(baseURL)
	}
}

func WithYahooTimeout(d time.Duration) YahooOption {
	return func(y *Yahoo) {
		y.client.SetTimeout(d)
	}
}

func WithYahooUserAgent(ua string) YahooOption {
	return func(y *Yahoo) {
		if ua != "" {
			y.client.SetHeader("User-Agent", ua)
		}
	}
}

// WithYahooCookieURL sets the page fetched to obtain the session cookie.
func WithYahooCookieURL(u string) YahooOption {
	return func(y *Yahoo) {
		y.cookieURL = u
	}
}

// WithEquityFallback sets the quote lookup used to fill gaps. nil disables it.
func WithEquityFallback(fn EquityFunc) YahooOption {
	return func(y *Yahoo) {
		y.equity = fn
	}
}

func NewYahoo(opts ...YahooOption) *Yahoo {
	client := resty.New()
	client.SetBaseURL(YahooBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; stock-screener/1.0)")

	// resty keeps a cookie jar, so the session cookie rides along with
	// every later request.
	y := &Yahoo{
		client:    client,
		equity:    equity.Get,
		cookieURL: YahooCookieURL,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// rawValue is Yahoo's {"raw": 1.5, "fmt": "1.50"} wrapper. An empty object
// means the value is not available.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) value() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	return types.Float(*v.Raw)
}

func (v *rawValue) percent() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	return types.Float(*v.Raw * 100)
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData *struct {
				CurrentPrice    *rawValue `json:"currentPrice"`
				TargetMeanPrice *rawValue `json:"targetMeanPrice"`
				TargetHighPrice *rawValue `json:"targetHighPrice"`
				TargetLowPrice  *rawValue `json:"targetLowPrice"`
			} `json:"financialData"`
			DefaultKeyStatistics *struct {
				ForwardPE               *rawValue `json:"forwardPE"`
				HeldPercentInsiders     *rawValue `json:"heldPercentInsiders"`
				HeldPercentInstitutions *rawValue `json:"heldPercentInstitutions"`
			} `json:"defaultKeyStatistics"`
			Price *struct {
				MarketCap          *rawValue `json:"marketCap"`
				RegularMarketPrice *rawValue `json:"regularMarketPrice"`
			} `json:"price"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// YahooSymbol converts share-class tickers to Yahoo's spelling: BRK.B
// becomes BRK-B.
func YahooSymbol(ticker string) string {
	return strings.ReplaceAll(ticker, ".", "-")
}

func (y *Yahoo) FetchCompanyMetrics(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	ticker = YahooSymbol(ticker)
	metrics, err := y.quoteSummary(ctx, ticker)
	if err != nil {
		if fallback := y.fromEquity(ctx, ticker); !fallback.Empty() {
			logger.Debug(ctx, "quoteSummary failed, using equity quote", "ticker", ticker, "error", err)
			return fallback, nil
		}
		return nil, err
	}

	if metrics == nil {
		metrics = &types.TickerMetrics{}
	}
	if metrics.ForwardPE == nil || metrics.MarketCap == nil || metrics.CurrentPrice == nil {
		metrics.Merge(y.fromEquity(ctx, ticker))
	}
	if metrics.Empty() {
		return nil, nil
	}
	return metrics, nil
}

// sessionCrumb returns the cached crumb, running the cookie and crumb
// handshake when there is none.
func (y *Yahoo) sessionCrumb(ctx context.Context) (string, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" {
		return y.crumb, nil
	}

	// The cookie page answers 404 on success; only a transport error matters.
	if _, err := y.client.R().SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(y.cookieURL); err != nil {
		return "", fmt.Errorf("yahoo session cookie: %w", err)
	}

	resp, err := y.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(crumbPath)
	if err != nil {
		return "", fmt.Errorf("yahoo crumb request: %w", err)
	}
	if err := checkResponse("yahoo", crumbPath, resp); err != nil {
		// a refused crumb stays retryable
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", apiErr
		}
		return "", err
	}

	crumb := strings.TrimSpace(resp.String())
	if crumb == "" || strings.Contains(strings.ToLower(crumb), "html") {
		return "", errors.New("yahoo returned an invalid crumb")
	}
	y.crumb = crumb
	return crumb, nil
}

func (y *Yahoo) dropCrumb(stale string) {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb == stale {
		y.crumb = ""
	}
}

// quoteSummary fetches the summary modules. A 401 means the crumb expired:
// it is fetched again and the request repeated once.
func (y *Yahoo) quoteSummary(ctx context.Context, ticker string) (*types.TickerMetrics, error) {
	var resp *resty.Response
	for attempt := 0; attempt < 2; attempt++ {
		crumb, err := y.sessionCrumb(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = y.client.R().
			SetContext(ctx).
			SetPathParam("ticker", ticker).
			SetQueryParam("modules", quoteSummaryModules).
			SetQueryParam("crumb", crumb).
			Get(quoteSummaryPath)
		if err != nil {
			return nil, fmt.Errorf("yahoo quoteSummary request for %s: %w", ticker, err)
		}
		if resp.StatusCode() != http.StatusUnauthorized {
			break
		}
		logger.Debug(ctx, "Yahoo crumb rejected, renewing session", "ticker", ticker, "attempt", attempt+1)
		y.dropCrumb(crumb)
	}
	if err := checkResponse("yahoo", "/v10/finance/quoteSummary", resp); err != nil {
		return nil, err
	}

	var body quoteSummaryResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode yahoo quoteSummary for %s: %w", ticker, err)
	}
	if len(body.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	r := body.QuoteSummary.Result[0]
	m := &types.TickerMetrics{}
	if fd := r.FinancialData; fd != nil {
		m.CurrentPrice = fd.CurrentPrice.value()
		m.TargetMeanPrice = fd.TargetMeanPrice.value()
		m.TargetHighPrice = fd.TargetHighPrice.value()
		m.TargetLowPrice = fd.TargetLowPrice.value()
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		m.ForwardPE = ks.ForwardPE.value()
		m.InsiderOwnershipPct = ks.HeldPercentInsiders.percent()
		m.InstitutionalOwnershipPct = ks.HeldPercentInstitutions.percent()
	}
	if p := r.Price; p != nil {
		m.MarketCap = p.MarketCap.value()
		if m.CurrentPrice == nil {
			m.CurrentPrice = p.RegularMarketPrice.value()
		}
	}
	return m, nil
}

// fromEquity reads the quote snapshot. Zero means absent there.
func (y *Yahoo) fromEquity(ctx context.Context, ticker string) *types.TickerMetrics {
	if y.equity == nil {
		return nil
	}
	q, err := y.equity(ticker)
	if err != nil || q == nil {
		if err != nil {
			logger.Debug(ctx, "Equity quote lookup failed", "ticker", ticker, "error", err)
		}
		return nil
	}

	m := &types.TickerMetrics{}
	if q.ForwardPE != 0 {
		m.ForwardPE = types.Float(q.ForwardPE)
	}
	if q.MarketCap != 0 {
		m.MarketCap = types.Float(float64(q.MarketCap))
	}
	if q.RegularMarketPrice != 0 {
		m.CurrentPrice = types.Float(q.RegularMarketPrice)
	}
	return m
}
