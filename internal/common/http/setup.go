package http

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/httpmetrics"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

// BuildBaseHandler wraps handler with the shared middleware chain. Client
// addresses come from proxy headers only when trustProxyHeaders is set.
func BuildBaseHandler(log *logger.Logger, allowedOrigins []string, trustProxyHeaders bool, handler http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", traceIDHeader},
		ExposedHeaders: []string{traceIDHeader},
		MaxAge:         300,
	})
	metrics := httpmetrics.New()
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)
	accessLog := AccessLogMiddleware(log)

	base := SecurityHeadersMiddleware(
		recovery(
			TraceIDMiddleware(
				maxRequestSize(
					metrics.Wrap(
						accessLog(
							corsHandler(handler),
						),
					),
				),
			),
		),
	)

	if trustProxyHeaders {
		return chimiddleware.RealIP(base)
	}
	return base
}
