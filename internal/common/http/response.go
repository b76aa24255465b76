package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteErrorEnvelope(w, status, CodeUnknown, message, "")
}

func WriteErrorEnvelope(w http.ResponseWriter, status int, code, message, traceID string) {
	WriteJSON(w, status, ErrorEnvelope{Code: code, Message: message, TraceID: traceID})
}

// DecodeJSON decodes the request body into v; malformed input becomes ErrInvalidPayload.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return commonerrors.ErrInvalidPayload.WithCause(err)
	}
	return nil
}

func PathParam(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", commonerrors.ErrMissingFields
	}
	return value, nil
}

// GetClientIP reports the peer address. Proxy headers are honoured only when
// BuildBaseHandler was told to trust them and rewrote RemoteAddr.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func WithTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteErrorEnvelope(w, http.StatusNotFound, CodeNotFound, "route not found", TraceIDFromContext(r.Context()))
}

func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteErrorEnvelope(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", TraceIDFromContext(r.Context()))
}
