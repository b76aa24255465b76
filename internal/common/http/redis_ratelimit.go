package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/resilience"
)

// RedisRateLimiter counts requests per client in fixed windows shared by
// every process that points at the same Redis.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	return count.Val() <= l.limit, nil
}

// FallbackLimiter asks primary through a circuit breaker and answers from
// fallback while primary is failing.
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	breaker  *resilience.CircuitBreaker
}

func NewFallbackLimiter(primary, fallback Limiter, breaker *resilience.CircuitBreaker) *FallbackLimiter {
	return &FallbackLimiter{primary: primary, fallback: fallback, breaker: breaker}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := l.breaker.CallWithFallback(ctx, func(callCtx context.Context) error {
		ok, err := l.primary.Allow(callCtx, key)
		if err != nil {
			return err
		}
		allowed = ok
		return nil
	}, func() error {
		ok, err := l.fallback.Allow(ctx, key)
		allowed = ok
		return err
	})
	return allowed, err
}
