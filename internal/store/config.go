package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DataSourceLive = "LIVE"
	DataSourceMock = "MOCK"

	JobStoreMemory = "memory"
	JobStoreRedis  = "redis"
	JobStoreBadger = "badger"
)

type Config struct {
	DataSource string          `yaml:"data_source" validate:"oneof=LIVE MOCK"`
	Providers  ProvidersConfig `yaml:"providers"`
	Cache      CacheConfig     `yaml:"cache"`
	Retry      RetryConfig     `yaml:"retry"`
	Pacing     PacingConfig    `yaml:"pacing"`
	Criteria   CriteriaConfig  `yaml:"criteria"`
	Server     ServerConfig    `yaml:"server"`
	Jobs       JobsConfig      `yaml:"jobs"`
	Report     ReportConfig    `yaml:"report"`
	Audit      AuditConfig     `yaml:"audit"`
}

type ProvidersConfig struct {
	Finnhub struct {
		BaseURL           string        `yaml:"base_url" validate:"required,url"`
		APIKeyEnv         string        `yaml:"api_key_env"`
		APIKey            string        `yaml:"-"`
		Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
		RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=1"`
	} `yaml:"finnhub"`
	Yahoo struct {
		BaseURL   string        `yaml:"base_url" validate:"required,url"`
		CookieURL string        `yaml:"cookie_url" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
		UserAgent string        `yaml:"user_agent"`
		// Fill forward P/E, market cap and price gaps from the quote endpoint.
		QuoteFallback bool `yaml:"quote_fallback"`
	} `yaml:"yahoo"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

type BackoffConfig struct {
	Kind         string        `yaml:"kind" validate:"oneof=fixed exponential"`
	Base         float64       `yaml:"base" validate:"gte=0"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gt=0"`
}

type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries" validate:"gte=1"`
	Empty       BackoffConfig `yaml:"empty"`
	RateLimited BackoffConfig `yaml:"rate_limited"`
	Transient   BackoffConfig `yaml:"transient"`
}

// PacingConfig spaces out tickers. BatchSize 0 means a flat Interval.
type PacingConfig struct {
	Interval   time.Duration `yaml:"interval" validate:"gte=0"`
	BatchSize  int           `yaml:"batch_size" validate:"gte=0"`
	BatchPause time.Duration `yaml:"batch_pause" validate:"gte=0"`
}

type CriteriaConfig struct {
	MinBuyPercentage     float64 `yaml:"min_buy_percentage" validate:"gte=0,lte=100"`
	MinMarketCapBillions float64 `yaml:"min_market_cap_billions" validate:"gte=0"`
	MinTargetUpside      float64 `yaml:"min_target_upside" validate:"gt=0"`
	MinOwnershipPct      float64 `yaml:"min_ownership_pct" validate:"gte=0,lte=200"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type JobsConfig struct {
	Store         string        `yaml:"store" validate:"oneof=memory redis badger"`
	Retention     time.Duration `yaml:"retention" validate:"gt=0"`
	EvictSchedule string        `yaml:"evict_schedule" validate:"required"`
	Redis         struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"-"`
		DB       int    `yaml:"db" validate:"gte=0"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Badger struct {
		Path string `yaml:"path"`
	} `yaml:"badger"`
}

type ReportConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=pdf csv json text txt"`
	Dir           string `yaml:"dir"`
}

type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
}

// DefaultConfig mirrors the values the screener was tuned with: 800ms
// between tickers with a 3s pause every 10, three attempts per fetch.
func DefaultConfig() *Config {
	c := &Config{DataSource: DataSourceLive}

	c.Providers.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	c.Providers.Finnhub.APIKeyEnv = "FINNHUB_API_KEY"
	c.Providers.Finnhub.Timeout = 30 * time.Second
	c.Providers.Finnhub.RequestsPerMinute = 60
	c.Providers.Yahoo.BaseURL = "https://query2.finance.yahoo.com"
	c.Providers.Yahoo.CookieURL = "https://fc.yahoo.com"
	c.Providers.Yahoo.Timeout = 30 * time.Second
	c.Providers.Yahoo.UserAgent = "Mozilla/5.0 (compatible; stock-screener/1.0)"
	c.Providers.Yahoo.QuoteFallback = true

	c.Cache = CacheConfig{Enabled: true, Dir: "cache/providers", TTL: 5 * time.Minute}

	c.Retry = RetryConfig{
		MaxRetries:  3,
		Empty:       BackoffConfig{Kind: "exponential", Base: 1.5, InitialDelay: time.Second},
		RateLimited: BackoffConfig{Kind: "exponential", Base: 2, InitialDelay: time.Second},
		Transient:   BackoffConfig{Kind: "fixed", InitialDelay: time.Second},
	}

	c.Pacing = PacingConfig{Interval: 800 * time.Millisecond, BatchSize: 10, BatchPause: 3 * time.Second}

	c.Criteria = CriteriaConfig{
		MinBuyPercentage:     70,
		MinMarketCapBillions: 100,
		MinTargetUpside:      1.15,
		MinOwnershipPct:      70,
	}

	c.Server = ServerConfig{Addr: ":5000", ShutdownTimeout: 15 * time.Second}

	c.Jobs.Store = JobStoreMemory
	c.Jobs.Retention = 24 * time.Hour
	c.Jobs.EvictSchedule = "@every 10m"
	c.Jobs.Redis.Addr = "localhost:6379"
	c.Jobs.Redis.Prefix = "screener:"
	c.Jobs.Badger.Path = "data/jobs"

	c.Report = ReportConfig{DefaultFormat: "pdf", Dir: "reports"}

	c.Audit = AuditConfig{Enabled: true, Dir: "logs", RetentionDays: 30}
	return c
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, b := range map[string]BackoffConfig{
		"empty":        c.Retry.Empty,
		"rate_limited": c.Retry.RateLimited,
		"transient":    c.Retry.Transient,
	} {
		if b.Kind == "exponential" && b.Base < 1 {
			return fmt.Errorf("retry.%s.base must be >= 1 for exponential backoff, got %.2f", name, b.Base)
		}
	}
	if c.Pacing.BatchSize > 0 && c.Pacing.BatchPause == 0 {
		return errors.New("pacing.batch_pause must be set when pacing.batch_size is used")
	}
	switch c.Jobs.Store {
	case JobStoreRedis:
		if c.Jobs.Redis.Addr == "" {
			return errors.New("jobs.redis.addr is required for the redis job store")
		}
	case JobStoreBadger:
		if c.Jobs.Badger.Path == "" {
			return errors.New("jobs.badger.path is required for the badger job store")
		}
	}
	if c.DataSource == DataSourceLive && c.Providers.Finnhub.APIKey == "" {
		return fmt.Errorf("finnhub api key missing: set %s or use data_source MOCK", c.Providers.Finnhub.APIKeyEnv)
	}
	return nil
}

// LoadConfig reads the YAML file at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error: defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if c.Providers.Finnhub.APIKeyEnv == "" {
		c.Providers.Finnhub.APIKeyEnv = "FINNHUB_API_KEY"
	}
	if v := os.Getenv(c.Providers.Finnhub.APIKeyEnv); v != "" {
		c.Providers.Finnhub.APIKey = v
	}
	if v := os.Getenv("SCREENER_DATA_SOURCE"); v != "" {
		c.DataSource = strings.ToUpper(v)
	}
	if v := os.Getenv("SCREENER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("SCREENER_ADDR") == "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("SCREENER_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("SCREENER_CACHE_ENABLED"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Cache.Enabled = on
		}
	}
	if v := os.Getenv("PACING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Pacing.Interval = d
		}
	}
	if v := os.Getenv("JOB_STORE"); v != "" {
		c.Jobs.Store = strings.ToLower(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Jobs.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Jobs.Redis.Password = v
	}
	if v := os.Getenv("BADGER_PATH"); v != "" {
		c.Jobs.Badger.Path = v
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		c.Report.Dir = v
	}
	if v := os.Getenv("AUDIT_LOG_DIR"); v != "" {
		c.Audit.Dir = v
	}
	if v := os.Getenv("AUDIT_LOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Audit.RetentionDays = n
		}
	}
}
