package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Throttle paces outbound lookups. Wait blocks until one request may be sent
// or ctx is done.
type Throttle interface {
	Wait(ctx context.Context) error
}

// LocalThrottle is an in-process token bucket.
type LocalThrottle struct {
	limiter *rate.Limiter
}

// NewLocalThrottle allows requestsPerMinute lookups with the given burst.
// It returns nil when requestsPerMinute is not positive.
func NewLocalThrottle(requestsPerMinute, burst int) *LocalThrottle {
	if requestsPerMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &LocalThrottle{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

// Wait blocks for a token.
func (t *LocalThrottle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

const redisWindow = time.Minute

// fixedWindowScript increments the window counter and starts its expiry on
// first use.
var fixedWindowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return current
`)

// RedisThrottleConfig configures the shared limiter.
type RedisThrottleConfig struct {
	RequestsPerMinute int
	KeyPrefix         string
	Source            string
}

// RedisThrottle shares one per-minute budget between every process using the
// same Redis key. Redis failures let the request through.
type RedisThrottle struct {
	redis  *redis.Client
	logger *zap.Logger
	key    string
	limit  int
}

// NewRedisThrottle creates a shared limiter. It returns nil when
// RequestsPerMinute is not positive.
func NewRedisThrottle(client *redis.Client, cfg RedisThrottleConfig, logger *zap.Logger) *RedisThrottle {
	if cfg.RequestsPerMinute <= 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rapidtriage:ratelimit"
	}
	if cfg.Source == "" {
		cfg.Source = blocklistName
	}

	return &RedisThrottle{
		redis:  client,
		logger: logger,
		key:    fmt.Sprintf("%s:%s:minute", cfg.KeyPrefix, cfg.Source),
		limit:  cfg.RequestsPerMinute,
	}
}

// Wait takes one slot from the current window, sleeping until the window
// resets when the budget is spent.
func (t *RedisThrottle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}

	for {
		count, err := fixedWindowScript.Run(ctx, t.redis, []string{t.key}, redisWindow.Milliseconds()).Int()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
			return nil
		}
		if count <= t.limit {
			return nil
		}

		wait, err := t.redis.PTTL(ctx, t.key).Result()
		if err != nil || wait <= 0 {
			wait = 100 * time.Millisecond
		}
		t.logger.Debug("Rate limit budget spent, waiting for window reset",
			zap.Int("count", count),
			zap.Int("limit", t.limit),
			zap.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
