// Package auditlog appends screening verdicts to daily JSON-lines files.
package auditlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-screener/internal/types"
)

type Entry struct {
	Time    string   `json:"time"`
	JobID   string   `json:"job_id"`
	Ticker  string   `json:"ticker"`
	Passed  bool     `json:"passed"`
	Markers []string `json:"markers"`
	Details []string `json:"details"`
	Error   string   `json:"error,omitempty"`
}

type Log struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// New returns a log rooted at dir, falling back to AUDIT_LOG_DIR and then
// "logs".
func New(dir string) *Log {
	if dir == "" {
		dir = os.Getenv("AUDIT_LOG_DIR")
	}
	if dir == "" {
		dir = "logs"
	}
	return &Log{dir: dir, now: time.Now}
}

func (l *Log) Dir() string {
	return l.dir
}

func (l *Log) dailyFilepath(t time.Time) string {
	return filepath.Join(l.dir, "verdicts", t.UTC().Format("2006-01-02")+".txt")
}

// Append writes one line per record of a finished run.
func (l *Log) Append(jobID string, records []types.ScreeningRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	p := l.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	stamp := now.UTC().Format(time.RFC3339)
	for _, r := range records {
		b, err := json.Marshal(Entry{
			Time:    stamp,
			JobID:   jobID,
			Ticker:  r.Ticker,
			Passed:  r.Passed,
			Markers: r.Markers(),
			Details: r.Details,
			Error:   r.Error,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(f, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// CompressOlder gzips day files last written more than retentionDays ago
// and reports how many were compressed.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	n := 0
	err := filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := gzipFile(p); err != nil {
			return fmt.Errorf("compress %s: %w", p, err)
		}
		n++
		return nil
	})
	return n, err
}

func gzipFile(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(gz)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}
