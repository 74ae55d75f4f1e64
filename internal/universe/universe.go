// Package universe supplies ticker lists to screen: the S&P 500
// constituents scraped from Wikipedia, or a user supplied file.
package universe

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"stock-screener/internal/logger"
	"stock-screener/internal/provider"
)

const SP500URL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Scraper reads index constituents from a Wikipedia list page.
type Scraper struct {
	url       string
	timeout   time.Duration
	userAgent string
}

type Option func(*Scraper)

func WithURL(u string) Option {
	return func(s *Scraper) {
		s.url = u
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.timeout = d
	}
}

func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		url:       SP500URL,
		timeout:   30 * time.Second,
		userAgent: "Mozilla/5.0 (compatible; stock-screener/1.0)",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SP500 returns the normalized constituent tickers in table order.
func (s *Scraper) SP500(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.Async(false),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", s.userAgent)
	})

	var tickers []string
	var found bool
	c.OnHTML("table#constituents", func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		tickers = parseTable(e.DOM)
	})

	var scrapeErr error
	c.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
		logger.ErrorWithErr(ctx, "Universe scrape failed", err, "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	err := c.Visit(s.url)
	c.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.url, ctxErr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.url, err)
	}

	if scrapeErr != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.url, scrapeErr)
	}
	if !found || len(tickers) == 0 {
		return nil, fmt.Errorf("no constituents table found at %s", s.url)
	}

	logger.Info(ctx, "Loaded S&P 500 constituents", "count", len(tickers))
	return tickers, nil
}

// ParseHTML extracts tickers from a constituents page. It looks for the
// #constituents table first and falls back to the first wikitable.
func ParseHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("no constituents table found")
	}
	return parseTable(table), nil
}

// parseTable reads the symbol from the first cell of each body row.
// Header rows use <th> and are skipped.
func parseTable(table *goquery.Selection) []string {
	var tickers []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		t := provider.NormalizeTicker(cell.Text())
		if provider.ValidateTicker(t) != nil {
			return
		}
		tickers = append(tickers, t)
	})
	return tickers
}

// FromFile reads comma, whitespace or newline separated tickers. Lines
// starting with # are comments.
func FromFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}

	tickers := provider.ParseTickers(strings.Join(lines, "\n"))
	for _, t := range tickers {
		if err := provider.ValidateTicker(t); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%s: no tickers found", path)
	}
	return tickers, nil
}
