package bootstrap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthttp "github.com/AlibekovAA/book-exchange/backend/internal/account/http"
	cataloghttp "github.com/AlibekovAA/book-exchange/backend/internal/catalog/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/config"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	exchangehttp "github.com/AlibekovAA/book-exchange/backend/internal/exchange/http"
)

type routerDeps struct {
	accounts        accounthttp.Service
	catalog         cataloghttp.Service
	ledger          exchangehttp.Service
	feed            http.Handler
	registerLimiter commonhttp.Limiter
	sessionLimiter  commonhttp.Limiter
	health          map[string]commonhttp.HealthCheck
}

type indexResponse struct {
	Service   string            `json:"service"`
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

func newRouter(deps routerDeps, cfg config.Config, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.NotFound(commonhttp.NotFoundHandler)
	r.MethodNotAllowed(commonhttp.MethodNotAllowedHandler)

	r.Get("/", index)
	r.Get("/health", commonhttp.HealthHandler(log, deps.health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(commonhttp.WithTimeout(cfg.RequestTimeout))
		api.NotFound(commonhttp.NotFoundHandler)
		api.MethodNotAllowed(commonhttp.MethodNotAllowedHandler)

		api.Mount("/accounts", accounthttp.NewRouter(deps.accounts, accounthttp.RouterConfig{
			JWTSecret:       cfg.JWTSecret,
			RegisterLimiter: deps.registerLimiter,
			SessionLimiter:  deps.sessionLimiter,
		}, log))
		api.Mount("/listings", cataloghttp.NewRouter(deps.catalog, log))
		api.Mount("/exchanges", exchangehttp.NewRouter(deps.ledger, deps.feed, log))
	})

	return r
}

func index(w http.ResponseWriter, _ *http.Request) {
	commonhttp.WriteJSON(w, http.StatusOK, indexResponse{
		Service: constants.ServiceName,
		Message: "Welcome to P2P Book Exchange API",
		Endpoints: map[string]string{
			"accounts":  "/api/accounts",
			"listings":  "/api/listings",
			"exchanges": "/api/exchanges",
			"feed":      "/api/exchanges/feed",
			"health":    "/health",
			"metrics":   "/metrics",
		},
	})
}
