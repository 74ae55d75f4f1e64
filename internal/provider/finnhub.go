package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"stock-screener/internal/retry"
	"stock-screener/internal/types"
)

const (
	FinnhubBaseURL = "https://finnhub.io/api/v1"

	// Free tier allowance.
	DefaultFinnhubRequestsPerMinute = 60

	recommendationPath = "/stock/recommendation"
)

// Finnhub serves analyst recommendation trends.
type Finnhub struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
}

type FinnhubOption func(*Finnhub)

func WithFinnhubBaseURL(baseURL string) FinnhubOption {
	return func(f *Finnhub) {
		f.client.SetBaseURL(baseURL)
	}
}

func WithFinnhubTimeout(d time.Duration) FinnhubOption {
	return func(f *Finnhub) {
		f.client.SetTimeout(d)
	}
}

// WithFinnhubRateLimit caps outgoing requests per minute.
func WithFinnhubRateLimit(perMinute int) FinnhubOption {
	return func(f *Finnhub) {
		f.limiter = newMinuteLimiter(perMinute)
	}
}

func NewFinnhub(apiKey string, opts ...FinnhubOption) *Finnhub {
	client := resty.New()
	client.SetBaseURL(FinnhubBaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("Accept", "application/json")

	f := &Finnhub{
		client:  client,
		apiKey:  apiKey,
		limiter: newMinuteLimiter(DefaultFinnhubRequestsPerMinute),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute < 1 {
		perMinute = DefaultFinnhubRequestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

type finnhubRecommendation struct {
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Period     string `json:"period"`
	Sell       int    `json:"sell"`
	StrongBuy  int    `json:"strongBuy"`
	StrongSell int    `json:"strongSell"`
	Symbol     string `json:"symbol"`
}

// FetchAnalystRecommendations returns the most recent recommendation trend.
// Finnhub lists periods newest first.
func (f *Finnhub) FetchAnalystRecommendations(ctx context.Context, ticker string) (*types.AnalystRatings, error) {
	if f.apiKey == "" {
		return nil, retry.Permanent(errors.New("finnhub api key not configured"))
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub rate limiter: %w", err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": ticker,
			"token":  f.apiKey,
		}).
		Get(recommendationPath)
	if err != nil {
		return nil, fmt.Errorf("finnhub recommendation request for %s: %w", ticker, err)
	}
	if err := checkResponse("finnhub", recommendationPath, resp); err != nil {
		return nil, err
	}

	var trends []finnhubRecommendation
	if err := json.Unmarshal(resp.Body(), &trends); err != nil {
		return nil, fmt.Errorf("decode finnhub recommendations for %s: %w", ticker, err)
	}
	if len(trends) == 0 {
		return nil, nil
	}

	latest := trends[0]
	return &types.AnalystRatings{
		Period:     latest.Period,
		StrongBuy:  latest.StrongBuy,
		Buy:        latest.Buy,
		Hold:       latest.Hold,
		Sell:       latest.Sell,
		StrongSell: latest.StrongSell,
	}, nil
}
