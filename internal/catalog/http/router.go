package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/catalog/service"
	commonhttp "github.com/AlibekovAA/book-exchange/backend/internal/common/http"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
)

type Service interface {
	ListAll(ctx context.Context) ([]domain.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error)
	GetByID(ctx context.Context, id string) (domain.Listing, error)
	Create(ctx context.Context, input service.CreateInput) (domain.Listing, error)
	Update(ctx context.Context, id string, input service.UpdateInput) (domain.Listing, error)
	ToggleAvailability(ctx context.Context, id string) (domain.Listing, error)
	Delete(ctx context.Context, id string) (domain.Listing, error)
}

type createRequest struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	OwnerID   string `json:"ownerId"`
	OwnerName string `json:"ownerName"`
}

type updateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}

type listingResponse struct {
	Message string         `json:"message,omitempty"`
	Listing domain.Listing `json:"listing"`
}

type listingsResponse struct {
	Listings []domain.Listing `json:"listings"`
}

type Handler struct {
	catalog Service
	errors  *commonhttp.ErrorHandler
}

func NewRouter(catalog Service, log *logger.Logger) http.Handler {
	h := &Handler{catalog: catalog, errors: commonhttp.NewErrorHandler(log)}

	r := chi.NewRouter()
	r.Get("/", h.listAll)
	r.Post("/", h.create)
	r.Get("/owner/{ownerID}", h.listByOwner)
	r.Get("/{id}", h.getByID)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/toggle", h.toggle)
	r.Post("/{id}/toggle-status", h.toggle)
	return r
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	listings, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

func (h *Handler) listByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := commonhttp.PathParam(r, "ownerID")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	listings, err := h.catalog.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, listingsResponse{Listings: listings})
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, "", h.catalog.GetByID)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, "Listing status updated successfully", h.catalog.ToggleAvailability)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, "Listing deleted successfully", h.catalog.Delete)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	listing, err := h.catalog.Create(r.Context(), service.CreateInput{
		Title:     req.Title,
		Author:    req.Author,
		Genre:     req.Genre,
		OwnerID:   req.OwnerID,
		OwnerName: req.OwnerName,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, listingResponse{Message: "Listing added successfully", Listing: listing})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	var req updateRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	listing, err := h.catalog.Update(r.Context(), id, service.UpdateInput{
		Title:  req.Title,
		Author: req.Author,
		Genre:  req.Genre,
	})
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, listingResponse{Message: "Listing updated successfully", Listing: listing})
}

func (h *Handler) withID(w http.ResponseWriter, r *http.Request, status int, message string, op func(context.Context, string) (domain.Listing, error)) {
	id, err := commonhttp.PathParam(r, "id")
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	listing, err := op(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, status, listingResponse{Message: message, Listing: listing})
}
