package constants

import "time"

type contextKey string

const TraceIDKey contextKey = "trace_id"

const (
	ServiceName = "bookexchange"

	JWTSecretMinLength = 32
	PhoneDigits        = 10
	BcryptCost         = 12

	DefaultGenre          = "Uncategorized"
	DefaultMaxRequestSize = 1 << 20

	AccountsCollection  = "accounts"
	ListingsCollection  = "listings"
	ProposalsCollection = "proposals"

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort       = "8000"
	DefaultDataDir        = "./data"
	DefaultStoreBackend   = "file"
	DefaultRequestTimeout = 5 * time.Second
	DefaultAccessTokenTTL = 30 * time.Minute

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 15 * time.Second

	RateLimitCleanupInterval           = 5 * time.Minute
	RateLimitSessionRequestsPerSecond  = 1.0
	RateLimitSessionBurst              = 5
	RateLimitRegisterRequestsPerSecond = 0.2
	RateLimitRegisterBurst             = 3
	RateLimitWindow                    = time.Minute

	RedisBreakerThreshold  = 3
	RedisBreakerTimeout    = 200 * time.Millisecond
	RedisBreakerResetAfter = 30 * time.Second

	WebSocketWriteWait  = 10 * time.Second
	WebSocketPongWait   = 60 * time.Second
	WebSocketPingPeriod = (WebSocketPongWait * 9) / 10
	WebSocketSendBuffer = 64
	WebSocketReadLimit  = 4096

	TestJWTSecret = "test-secret-key-that-is-32-bytes-long!!"
)
