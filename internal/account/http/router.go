package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/account/service"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

type Service interface {
	Register(ctx context.Context, input service.RegisterInput) (service.SessionResult, error)
	Authenticate(ctx context.Context, input service.AuthenticateInput) (service.SessionResult, error)
	GetByID(ctx context.Context, id string) (domain.Profile, error)
}

type RouterConfig struct {
	JWTSecret       string
	RegisterLimiter commonhttp.Limiter
	SessionLimiter  commonhttp.Limiter
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string         `json:"message"`
	Account domain.Profile `json:"account"`
	Token   string         `json:"token,omitempty"`
}

type accountResponse struct {
	Account domain.Profile `json:"account"`
}

type Handler struct {
	accounts Service
	errors   *commonhttp.ErrorHandler
	log      *logger.Logger
}

// NewRouter serves the account routes relative to their mount point.
func NewRouter(accounts Service, cfg RouterConfig, log *logger.Logger) http.Handler {
	h := &Handler{
		accounts: accounts,
		errors:   commonhttp.NewErrorHandler(log),
		log:      log,
	}

	r := chi.NewRouter()
	r.With(limit(cfg.RegisterLimiter, "register", log)).Post("/", h.register)
	r.With(limit(cfg.SessionLimiter, "session", log)).Post("/session", h.authenticate)
	r.With(jwtverify.Middleware(cfg.JWTSecret, log)).Get("/me", h.me)
	r.Get("/{id}", h.getByID)
	return r
}

func limit(limiter commonhttp.Limiter, name string, log *logger.Logger) func(http.Handler) http.Handler {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return commonhttp.RateLimitMiddleware(limiter, name, log)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	result, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, sessionResponse{
		Message: "Registered successfully",
		Account: result.Account,
		Token:   result.Token,
	})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	result, err := h.accounts.Authenticate(r.Context(), service.AuthenticateInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		Account: result.Account,
		Token:   result.Token,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token", commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	account, err := h.accounts.GetByID(r.Context(), claims.AccountID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, accountResponse{Account: account})
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	account, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, accountResponse{Account: account})
}
