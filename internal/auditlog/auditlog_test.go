package auditlog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-screener/internal/types"
)

func TestAppend(t *testing.T) {
	l := New(t.TempDir())
	day := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	records := []types.ScreeningRecord{
		types.PlaceholderRecord("AAA", nil),
		{Ticker: "BBB", Passed: true, Details: []string{"Market Cap: $150.00B"}},
	}
	require.NoError(t, l.Append("job-1", records))

	f, err := os.Open(filepath.Join(l.Dir(), "verdicts", "2024-03-01.txt"))
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "job-1", entries[0].JobID)
	assert.Equal(t, "AAA", entries[0].Ticker)
	assert.Equal(t, "unknown error", entries[0].Error)
	assert.Len(t, entries[0].Markers, 5)
	assert.True(t, entries[1].Passed)
	assert.Equal(t, "2024-03-01T15:00:00Z", entries[1].Time)
}

func TestCompressOlder(t *testing.T) {
	l := New(t.TempDir())
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	dir := filepath.Join(l.Dir(), "verdicts")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	oldFile := filepath.Join(dir, "2024-03-01.txt")
	newFile := filepath.Join(dir, "2024-03-09.txt")
	require.NoError(t, os.WriteFile(oldFile, []byte(`{"ticker":"AAA"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte(`{"ticker":"BBB"}`+"\n"), 0o644))
	require.NoError(t, os.Chtimes(oldFile, now.AddDate(0, 0, -9), now.AddDate(0, 0, -9)))
	require.NoError(t, os.Chtimes(newFile, now.AddDate(0, 0, -1), now.AddDate(0, 0, -1)))

	n, err := l.CompressOlder(7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newFile)
	assert.NoError(t, err)

	gz, err := os.Open(oldFile + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	var e Entry
	require.NoError(t, json.NewDecoder(r).Decode(&e))
	assert.Equal(t, "AAA", e.Ticker)
}

func TestNew_DirFallback(t *testing.T) {
	t.Setenv("AUDIT_LOG_DIR", "/tmp/screener-audit")
	assert.Equal(t, "/tmp/screener-audit", New("").Dir())
	assert.Equal(t, "custom", New("custom").Dir())
}
