package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/service"
)

type Service interface {
	ListAll(ctx context.Context) ([]domain.Proposal, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Proposal, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.Proposal, error)
	GetByID(ctx context.Context, id string) (domain.Proposal, error)
	Create(ctx context.Context, input service.CreateInput) (domain.Proposal, error)
	SetStatus(ctx context.Context, id, status string) (domain.Proposal, error)
	Delete(ctx context.Context, id string) (domain.Proposal, error)
}

type createRequest struct {
	OwnerID            string `json:"ownerId"`
	RequesterID        string `json:"requesterId"`
	RequestedListingID string `json:"requestedListingId"`
	OfferedListingID   string `json:"offeredListingId"`
	Message            string `json:"message"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type exchangeResponse struct {
	Message  string          `json:"message,omitempty"`
	Exchange domain.Proposal `json:"exchange"`
}

type exchangesResponse struct {
	Exchanges []domain.Proposal `json:"exchanges"`
}

type Handler struct {
	ledger Service
	errors *commonhttp.ErrorHandler
}

// NewRouter serves the exchange routes. feed, when non-nil, is mounted at /feed.
func NewRouter(ledger Service, feed http.Handler, log *logger.Logger) http.Handler {
	h := &Handler{ledger: ledger, errors: commonhttp.NewErrorHandler(log)}

	r := chi.NewRouter()
	r.Get("/", h.listAll)
	r.Post("/", h.create)
	if feed != nil {
		r.Method(http.MethodGet, "/feed", feed)
	}
	r.Get("/owner/{ownerID}", h.list("ownerID", ledger.ListByOwner))
	r.Get("/requester/{requesterID}", h.list("requesterID", ledger.ListByRequester))
	r.Get("/{id}", h.getByID)
	r.Put("/{id}/status", h.setStatus)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.ledger.ListAll(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, exchangesResponse{Exchanges: proposals})
}

func (h *Handler) list(param string, op func(context.Context, string) ([]domain.Proposal, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := commonhttp.PathParam(r, param)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		proposals, err := op(r.Context(), id)
		if err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, exchangesResponse{Exchanges: proposals})
	}
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	proposal, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, exchangeResponse{Exchange: proposal})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	proposal, err := h.ledger.Create(r.Context(), service.CreateInput{
		OwnerID:            req.OwnerID,
		RequesterID:        req.RequesterID,
		RequestedListingID: req.RequestedListingID,
		OfferedListingID:   req.OfferedListingID,
		Message:            req.Message,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, exchangeResponse{Message: "Exchange created successfully", Exchange: proposal})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	var req statusRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	proposal, err := h.ledger.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, exchangeResponse{Message: "Exchange status updated successfully", Exchange: proposal})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	proposal, err := h.ledger.Delete(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, exchangeResponse{Message: "Exchange deleted successfully", Exchange: proposal})
}
