package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrInvalidBackend     = errors.New("STORE_BACKEND must be 'file' or 'postgres'")
	ErrInvalidBcryptCost  = errors.New("BCRYPT_COST is out of range")
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is read from an optional TOML file first; environment variables override it.
type Config struct {
	HTTPPort           string        `toml:"http_port"`
	StoreBackend       string        `toml:"store_backend"`
	DataDir            string        `toml:"data_dir"`
	DatabaseURL        string        `toml:"database_url"`
	JWTSecret          string        `toml:"jwt_secret"`
	AccessTokenTTL     time.Duration `toml:"access_token_ttl"`
	BcryptCost         int           `toml:"bcrypt_cost"`
	RequestTimeout     time.Duration `toml:"request_timeout"`
	RedisURL           string        `toml:"redis_url"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP; enable only behind a proxy that sets them.
	TrustProxyHeaders bool            `toml:"trust_proxy_headers"`
	LogDir            string          `toml:"log_dir"`
	LogLevel          string          `toml:"log_level"`
	RateLimit         RateLimitConfig `toml:"rate_limit"`
}

type RateLimitConfig struct {
	SessionPerSecond  float64 `toml:"session_per_second"`
	SessionBurst      int     `toml:"session_burst"`
	RegisterPerSecond float64 `toml:"register_per_second"`
	RegisterBurst     int     `toml:"register_burst"`
}

func Defaults() Config {
	return Config{
		HTTPPort:           constants.DefaultHTTPPort,
		StoreBackend:       constants.DefaultStoreBackend,
		DataDir:            constants.DefaultDataDir,
		AccessTokenTTL:     constants.DefaultAccessTokenTTL,
		BcryptCost:         constants.BcryptCost,
		RequestTimeout:     constants.DefaultRequestTimeout,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "info",
		RateLimit: RateLimitConfig{
			SessionPerSecond:  constants.RateLimitSessionRequestsPerSecond,
			SessionBurst:      constants.RateLimitSessionBurst,
			RegisterPerSecond: constants.RateLimitRegisterRequestsPerSecond,
			RegisterBurst:     constants.RateLimitRegisterBurst,
		},
	}
}

// Read decodes a TOML document over the defaults.
func Read(r io.Reader) (Config, error) {
	cfg := Defaults()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Load reads path (if non-empty), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Resolve(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve is Load without validation, for commands that need only part of the config.
func Resolve(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		cfg, err = Read(f)
		if err != nil {
			return Config{}, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequiredEnv, "JWT_SECRET")
	}
	if err := validateJWTSecret(c.JWTSecret); err != nil {
		return err
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: got %d", ErrInvalidBcryptCost, c.BcryptCost)
	}

	switch c.StoreBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredEnv, "DATA_DIR")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredEnv, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidBackend, c.StoreBackend)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", cfg.StoreBackend))
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AccessTokenTTL = getDurationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RequestTimeout = getDurationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.BcryptCost = getIntEnv("BCRYPT_COST", cfg.BcryptCost)
	cfg.TrustProxyHeaders = getBoolEnv("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.RateLimit.SessionPerSecond = getFloatEnv("RATE_LIMIT_SESSION_RPS", cfg.RateLimit.SessionPerSecond)
	cfg.RateLimit.SessionBurst = getIntEnv("RATE_LIMIT_SESSION_BURST", cfg.RateLimit.SessionBurst)
	cfg.RateLimit.RegisterPerSecond = getFloatEnv("RATE_LIMIT_REGISTER_RPS", cfg.RateLimit.RegisterPerSecond)
	cfg.RateLimit.RegisterBurst = getIntEnv("RATE_LIMIT_REGISTER_BURST", cfg.RateLimit.RegisterBurst)

	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSAllowedOrigins = origins
	}
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getFloatEnv(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
