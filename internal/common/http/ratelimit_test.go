package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/resilience"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) Allow(context.Context, string) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func testLogger() *logger.Logger {
	log, _ := logger.New("", "test", "error")
	return log
}

func TestRateLimiter_BurstThenBlock(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Stop()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "b")
	assert.True(t, ok, "keys are limited independently")
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name    string
		limiter *stubLimiter
		want    int
	}{
		{"allowed", &stubLimiter{allowed: true}, http.StatusNoContent},
		{"blocked", &stubLimiter{allowed: false}, http.StatusTooManyRequests},
		{"limiter failure fails open", &stubLimiter{err: errors.New("boom")}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimitMiddleware(tt.limiter, "session", testLogger())(next)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/session", nil))

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusTooManyRequests {
				assert.Contains(t, rec.Body.String(), CodeRateLimited)
			}
		})
	}
}

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Unix(1_700_000_000, 0)
	rl := NewRedisRateLimiter(client, "rl", 2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = rl.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts a new count")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.True(t, mr.TTL(keys[0]) > 0, "window keys expire")
}

func TestRedisRateLimiter_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedisRateLimiter(client, "rl", 1, time.Minute).Allow(context.Background(), "ip")
	assert.Error(t, err)
}

func TestFallbackLimiter(t *testing.T) {
	primary := &stubLimiter{err: errors.New("redis down")}
	fallback := &stubLimiter{allowed: true}
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  2,
		ResetAfter: time.Hour,
	})
	l := NewFallbackLimiter(primary, fallback, breaker)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, 2, primary.calls, "open circuit skips the primary")
	assert.Equal(t, 3, fallback.calls)
	assert.True(t, breaker.IsOpen())
}

func TestFallbackLimiter_PrimaryHealthy(t *testing.T) {
	primary := &stubLimiter{allowed: false}
	fallback := &stubLimiter{allowed: true}
	l := NewFallbackLimiter(primary, fallback, resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute}))

	ok, err := l.Allow(context.Background(), "ip")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, fallback.calls)
}
