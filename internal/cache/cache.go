// Package cache is a small file-backed response cache with a TTL, used to
// avoid hitting the market data providers twice for the same ticker within
// a few minutes.
package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Cache struct {
	dir string
	ttl time.Duration
	mu  sync.RWMutex
	now func() time.Time
}

type entry struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"stored_at"`
}

func New(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		dir = "cache/providers"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached JSON document for key if it is still fresh.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false
	}
	if e.Key != key || c.now().Sub(e.StoredAt) > c.ttl {
		return nil, false
	}
	return e.Data, true
}

// Set stores data, which must be a valid JSON document.
func (c *Cache) Set(key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := json.Marshal(entry{Key: key, Data: data, StoredAt: c.now()})
	if err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path(key))
}

// GetJSON decodes a fresh entry into v.
func (c *Cache) GetJSON(key string, v any) bool {
	b, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func (c *Cache) SetJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, b)
}

func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// CleanupExpired removes stale entries and reports how many were dropped.
func (c *Cache) CleanupExpired() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, de.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", md5.Sum([]byte(key))))
}

// Key joins parts into a cache key, e.g. Key("yahoo", "metrics", "AAPL").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
