package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stock-screener/internal/auditlog"
	"stock-screener/internal/cache"
	"stock-screener/internal/interfaces"
	"stock-screener/internal/jobs"
	"stock-screener/internal/logger"
	"stock-screener/internal/provider"
	"stock-screener/internal/provider/providerobs"
	"stock-screener/internal/retry"
	"stock-screener/internal/screener"
	"stock-screener/internal/screener/screenerobs"
	"stock-screener/internal/store"
)

// initializeSystem loads .env and sets up the logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	logger.Info(ctx, "Configuration loaded",
		"data_source", cfg.DataSource,
		"job_store", cfg.Jobs.Store,
		"pacing_interval", cfg.Pacing.Interval.String(),
		"max_retries", cfg.Retry.MaxRetries,
	)
	return cfg, nil
}

func retryConfig(cfg *store.Config) retry.Config {
	policy := func(b store.BackoffConfig) retry.Policy {
		return retry.Policy{Kind: retry.Kind(b.Kind), Base: b.Base, InitialDelay: b.InitialDelay}
	}
	return retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		Policies: retry.Policies{
			Empty:       policy(cfg.Retry.Empty),
			RateLimited: policy(cfg.Retry.RateLimited),
			Transient:   policy(cfg.Retry.Transient),
		},
	}
}

func criteria(cfg *store.Config) screener.Criteria {
	return screener.Criteria{
		MinBuyPercentage:     cfg.Criteria.MinBuyPercentage,
		MinMarketCapBillions: cfg.Criteria.MinMarketCapBillions,
		MinTargetUpside:      cfg.Criteria.MinTargetUpside,
		MinOwnershipPct:      cfg.Criteria.MinOwnershipPct,
	}
}

func pacing(cfg *store.Config) screener.Pacing {
	return screener.Pacing{
		Interval:   cfg.Pacing.Interval,
		BatchSize:  cfg.Pacing.BatchSize,
		BatchPause: cfg.Pacing.BatchPause,
	}
}

// initializeProvider builds the data provider chain:
// source -> cache -> retry -> observability.
func initializeProvider(ctx context.Context, cfg *store.Config) (interfaces.DataProvider, error) {
	var (
		p    interfaces.DataProvider
		name string
	)

	if cfg.DataSource == store.DataSourceMock {
		logger.Warn(ctx, "Using MOCK market data, verdicts are not real")
		p, name = provider.NewDemoMock(), "mock"
	} else {
		yopts := []provider.YahooOption{
			provider.WithYahooBaseURL(cfg.Providers.Yahoo.BaseURL),
			provider.WithYahooCookieURL(cfg.Providers.Yahoo.CookieURL),
			provider.WithYahooTimeout(cfg.Providers.Yahoo.Timeout),
			provider.WithYahooUserAgent(cfg.Providers.Yahoo.UserAgent),
		}
		if !cfg.Providers.Yahoo.QuoteFallback {
			yopts = append(yopts, provider.WithEquityFallback(nil))
		}
		yahoo := provider.NewYahoo(yopts...)
		finnhub := provider.NewFinnhub(cfg.Providers.Finnhub.APIKey,
			provider.WithFinnhubBaseURL(cfg.Providers.Finnhub.BaseURL),
			provider.WithFinnhubTimeout(cfg.Providers.Finnhub.Timeout),
			provider.WithFinnhubRateLimit(cfg.Providers.Finnhub.RequestsPerMinute),
		)
		logger.Info(ctx, "Using LIVE market data", "metrics", "yahoo", "ratings", "finnhub")
		p, name = provider.Combine(yahoo, finnhub), "live"
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		if n, err := c.CleanupExpired(); err != nil {
			logger.Warn(ctx, "Failed to clean provider cache", "error", err)
		} else if n > 0 {
			logger.Debug(ctx, "Removed expired cache entries", "count", n)
		}
		p = provider.NewCached(p, c)
	}

	p = provider.NewResilient(p, retry.NewExecutor(retryConfig(cfg)))
	return providerobs.Wrap(name, p), nil
}

func initializeScreener(cfg *store.Config, p interfaces.DataProvider) interfaces.Screener {
	ev := screenerobs.WrapEvaluator(screener.NewEvaluator(p, criteria(cfg)))
	return screenerobs.Wrap(screener.NewOrchestrator(ev, pacing(cfg)))
}

func initializeJobStore(ctx context.Context, cfg *store.Config) (interfaces.JobStore, error) {
	switch cfg.Jobs.Store {
	case store.JobStoreRedis:
		logger.Info(ctx, "Using redis job store", "addr", cfg.Jobs.Redis.Addr)
		return jobs.NewRedisStore(ctx, jobs.RedisOptions{
			Addr:      cfg.Jobs.Redis.Addr,
			Password:  cfg.Jobs.Redis.Password,
			DB:        cfg.Jobs.Redis.DB,
			Prefix:    cfg.Jobs.Redis.Prefix,
			Retention: cfg.Jobs.Retention,
		})
	case store.JobStoreBadger:
		logger.Info(ctx, "Using badger job store", "path", cfg.Jobs.Badger.Path)
		return jobs.NewBadgerStore(cfg.Jobs.Badger.Path)
	default:
		return jobs.NewMemoryStore(), nil
	}
}

// initializeAudit returns nil when the audit log is off. Old day files are
// compressed on startup.
func initializeAudit(ctx context.Context, cfg *store.Config) *auditlog.Log {
	if !cfg.Audit.Enabled {
		return nil
	}
	l := auditlog.New(cfg.Audit.Dir)
	if n, err := l.CompressOlder(cfg.Audit.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old audit logs", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Compressed old audit logs", "count", n)
	}
	return l
}

func configPath(flag string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv("SCREENER_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
