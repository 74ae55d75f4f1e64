package universe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const constituentsPage = `<html><body>
<table class="wikitable">
<tr><th>Other</th></tr>
<tr><td>IGNORED</td></tr>
</table>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="/wiki/x">MMM</a></td><td>3M</td><td>Industrials</td></tr>
<tr><td><a href="/wiki/y">AOS</a>
</td><td>A. O. Smith</td><td>Industrials</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td></tr>
<tr><td>BF.B</td><td>Brown-Forman</td><td>Consumer Staples</td></tr>
</tbody>
</table>
</body></html>`

func TestParseHTML(t *testing.T) {
	got, err := ParseHTML(strings.NewReader(constituentsPage))
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AOS", "BRK.B", "BF.B"}, got)
}

func TestParseHTML_FallsBackToFirstWikitable(t *testing.T) {
	page := `<table class="wikitable"><tr><th>Symbol</th></tr><tr><td>aapl</td></tr><tr><td>msft</td></tr></table>`
	got, err := ParseHTML(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestParseHTML_NoTable(t *testing.T) {
	_, err := ParseHTML(strings.NewReader(`<p>nothing here</p>`))
	assert.Error(t, err)
}

func TestScraper_SP500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(constituentsPage))
	}))
	defer srv.Close()

	got, err := NewScraper(WithURL(srv.URL + "/wiki/List")).SP500(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"MMM", "AOS", "BRK.B", "BF.B"}, got)
}

func TestScraper_SP500HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewScraper(WithURL(srv.URL)).SP500(context.Background())
	assert.Error(t, err)
}

func TestScraper_SP500Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewScraper(WithURL(srv.URL), WithTimeout(time.Minute)).SP500(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("# watchlist\naapl, msft\nnvda\n\n"), 0o644))

	got, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte("AAPL\nBAD$SYM\n"), 0o644))

	_, err := FromFile(path)
	assert.Error(t, err)
}
