package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	accountservice "github.com/AlibekovAA/book-exchange/backend/internal/account/service"
	catalogservice "github.com/AlibekovAA/book-exchange/backend/internal/catalog/service"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/config"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/resilience"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/feed"
	exchangeservice "github.com/AlibekovAA/book-exchange/backend/internal/exchange/service"
	"github.com/AlibekovAA/book-exchange/backend/internal/references"
)

// App owns every long-lived component of the service. Handler is ready to be
// served once New returns; Close releases everything New acquired.
type App struct {
	Config  config.Config
	Log     *logger.Logger
	Handler http.Handler

	hub      *feed.Hub
	hubUp    bool
	pool     *pgxpool.Pool
	redis    *redis.Client
	limiters []*commonhttp.RateLimiter
	cancel   context.CancelFunc
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, Log: log, cancel: cancel}

	ids := commoncrypto.NewUUIDGenerator()
	stores, err := openStores(ctx, runCtx, cfg, ids, log)
	if err != nil {
		cancel()
		return nil, err
	}
	app.pool = stores.pool

	resolver := references.NewResolver()
	app.hub = feed.NewHub(log)

	accounts := accountservice.NewAccountService(accountservice.AccountServiceDeps{
		Store:  stores.accounts,
		Hasher: &commoncrypto.BcryptHasher{Cost: cfg.BcryptCost},
		Tokens: accountservice.NewTokenIssuer(cfg.JWTSecret, ids, cfg.AccessTokenTTL, nil),
		Log:    log,
	})
	catalog := catalogservice.NewCatalogService(catalogservice.CatalogServiceDeps{
		Store:     stores.listings,
		Owners:    resolver,
		Proposals: resolver,
		Log:       log,
	})
	ledger := exchangeservice.NewLedgerService(exchangeservice.LedgerServiceDeps{
		Store:     stores.proposals,
		Lookup:    resolver,
		Publisher: app.hub,
		Log:       log,
	})
	resolver.Bind(accounts, catalog, ledger)

	registerLimiter, sessionLimiter, err := app.buildLimiters(cfg)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	checks := map[string]commonhttp.HealthCheck{"store": stores.health}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}

	router := newRouter(routerDeps{
		accounts:        accounts,
		catalog:         catalog,
		ledger:          ledger,
		feed:            feed.Handler(app.hub, cfg.JWTSecret, cfg.CORSAllowedOrigins, log),
		registerLimiter: registerLimiter,
		sessionLimiter:  sessionLimiter,
		health:          checks,
	}, cfg, log)
	app.Handler = commonhttp.BuildBaseHandler(log, cfg.CORSAllowedOrigins, cfg.TrustProxyHeaders, router)

	go app.hub.Run(runCtx)
	app.hubUp = true

	log.WithFields(ctx, logger.Fields{
		"backend": cfg.StoreBackend,
		"redis":   app.redis != nil,
		"action":  "app_initialized",
	}).Info("application initialized")
	return app, nil
}

func (a *App) buildLimiters(cfg config.Config) (commonhttp.Limiter, commonhttp.Limiter, error) {
	register := commonhttp.NewRateLimiter(cfg.RateLimit.RegisterPerSecond, cfg.RateLimit.RegisterBurst)
	session := commonhttp.NewRateLimiter(cfg.RateLimit.SessionPerSecond, cfg.RateLimit.SessionBurst)
	a.limiters = append(a.limiters, register, session)

	if cfg.RedisURL == "" {
		return register, session, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	a.redis = redis.NewClient(opts)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  constants.RedisBreakerThreshold,
		Timeout:    constants.RedisBreakerTimeout,
		ResetAfter: constants.RedisBreakerResetAfter,
		Name:       "redis_rate_limit",
		Logger:     a.Log,
	})

	redisRegister := commonhttp.NewRedisRateLimiter(a.redis, "ratelimit:register",
		windowLimit(cfg.RateLimit.RegisterPerSecond, cfg.RateLimit.RegisterBurst), constants.RateLimitWindow)
	redisSession := commonhttp.NewRedisRateLimiter(a.redis, "ratelimit:session",
		windowLimit(cfg.RateLimit.SessionPerSecond, cfg.RateLimit.SessionBurst), constants.RateLimitWindow)

	return commonhttp.NewFallbackLimiter(redisRegister, register, breaker),
		commonhttp.NewFallbackLimiter(redisSession, session, breaker),
		nil
}

// windowLimit converts a token bucket setting into a fixed-window count.
func windowLimit(perSecond float64, burst int) int {
	limit := int(math.Ceil(perSecond * constants.RateLimitWindow.Seconds()))
	if limit < burst {
		limit = burst
	}
	return limit
}

// Close stops the feed, background workers and connections. It is safe to
// call more than once.
func (a *App) Close(ctx context.Context) error {
	a.cancel()

	var errs []error
	if a.hubUp {
		select {
		case <-a.hub.Done():
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("feed shutdown: %w", ctx.Err()))
		}
	}
	for _, l := range a.limiters {
		l.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
