package triage

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/rapidtriage/internal/config"
	"github.com/lvonguyen/rapidtriage/internal/enrichment"
	"github.com/lvonguyen/rapidtriage/internal/observability"
)

// Build wires a Pipeline from configuration. The returned cleanup releases
// the Redis client when one is configured and is always non-nil.
func Build(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (*Pipeline, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := enrichment.NewBlocklistProvider(enrichment.BlocklistConfig{
		BaseURL:          cfg.Enrichment.BaseURL,
		RequestTimeout:   cfg.Enrichment.RequestTimeout,
		InsecureTLS:      cfg.Enrichment.InsecureTLS,
		MaxResponseBytes: cfg.Enrichment.MaxResponseBytes,
	}, logger)

	throttle, cleanup := buildThrottle(cfg, provider.Name(), logger)

	scheduler := enrichment.NewScheduler(provider, enrichment.SchedulerConfig{
		Concurrency:  cfg.Enrichment.Concurrency,
		RetryBackoff: cfg.Enrichment.RetryBackoff,
	}, throttle, metrics, logger)

	return NewPipeline(scheduler, cfg.ReportSuffix, metrics, logger), cleanup, nil
}

func buildThrottle(cfg *config.Config, source string, logger *zap.Logger) (enrichment.Throttle, func() error) {
	noop := func() error { return nil }
	rl := cfg.RateLimit

	if rl.RequestsPerMinute <= 0 {
		return nil, noop
	}

	if rl.Redis.Addr == "" {
		logger.Info("Using in-process rate limit",
			zap.Int("requests_per_minute", rl.RequestsPerMinute),
			zap.Int("burst", rl.Burst),
		)
		return enrichment.NewLocalThrottle(rl.RequestsPerMinute, rl.Burst), noop
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rl.Redis.Addr,
		Password: cfg.RedisPassword(),
		DB:       rl.Redis.DB,
	})
	logger.Info("Using shared Redis rate limit",
		zap.String("addr", rl.Redis.Addr),
		zap.Int("requests_per_minute", rl.RequestsPerMinute),
	)
	throttle := enrichment.NewRedisThrottle(client, enrichment.RedisThrottleConfig{
		RequestsPerMinute: rl.RequestsPerMinute,
		KeyPrefix:         rl.Redis.KeyPrefix,
		Source:            source,
	}, logger)
	return throttle, client.Close
}
