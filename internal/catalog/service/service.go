package service

import (
	"context"
	"errors"
	"strings"

	"github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/clock"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
)

// OwnerDirectory resolves an account id to its display name, failing with a
// not-found domain error for unknown accounts.
type OwnerDirectory interface {
	OwnerName(ctx context.Context, accountID string) (string, error)
}

type ProposalGuard interface {
	HasOpenProposals(ctx context.Context, listingID string) (bool, error)
}

type CatalogServiceDeps struct {
	Store     recordstore.Store[domain.Listing]
	Owners    OwnerDirectory
	Proposals ProposalGuard
	Clock     clock.Clock
	Log       *logger.Logger
}

type CatalogService struct {
	store     recordstore.Store[domain.Listing]
	owners    OwnerDirectory
	proposals ProposalGuard
	clock     clock.Clock
	log       *logger.Logger
}

func NewCatalogService(deps CatalogServiceDeps) *CatalogService {
	c := deps.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	return &CatalogService{
		store:     deps.Store,
		owners:    deps.Owners,
		proposals: deps.Proposals,
		clock:     c,
		log:       deps.Log,
	}
}

type CreateInput struct {
	Title     string
	Author    string
	Genre     string
	OwnerID   string
	OwnerName string
}

// UpdateInput fields left empty keep their current value.
type UpdateInput struct {
	Title  string
	Author string
	Genre  string
}

func (s *CatalogService) ListAll(ctx context.Context) ([]domain.Listing, error) {
	listings, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, s.storeError(ctx, "list_listings", err)
	}
	return listings, nil
}

func (s *CatalogService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	listings, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return recordstore.Filter(listings, func(l domain.Listing) bool {
		return l.OwnerID == ownerID
	}), nil
}

func (s *CatalogService) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	listings, err := s.ListAll(ctx)
	if err != nil {
		return domain.Listing{}, err
	}
	idx, found := recordstore.FindFirst(listings, recordstore.ByID[domain.Listing](id))
	if !found {
		return domain.Listing{}, ErrListingNotFound
	}
	return listings[idx], nil
}

func (s *CatalogService) Create(ctx context.Context, input CreateInput) (domain.Listing, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Genre = strings.TrimSpace(input.Genre)

	if input.Title == "" || input.Author == "" || input.OwnerID == "" {
		return domain.Listing{}, commonerrors.ErrMissingFields
	}

	ownerName, err := s.resolveOwner(ctx, input.OwnerID)
	if err != nil {
		return domain.Listing{}, err
	}
	if input.OwnerName != "" {
		ownerName = input.OwnerName
	}

	genre := input.Genre
	if genre == "" {
		genre = constants.DefaultGenre
	}

	listing, err := s.store.Append(ctx, domain.Listing{
		Title:     input.Title,
		Author:    input.Author,
		Genre:     genre,
		OwnerID:   input.OwnerID,
		OwnerName: ownerName,
		Available: true,
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		return domain.Listing{}, s.storeError(ctx, "create_listing", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"action":     "listing_created",
	}).Info("listing created")
	return listing, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, input UpdateInput) (domain.Listing, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.Genre = strings.TrimSpace(input.Genre)

	listing, err := s.store.UpdateWhere(ctx, recordstore.ByID[domain.Listing](id), func(l domain.Listing) (domain.Listing, error) {
		if input.Title != "" {
			l.Title = input.Title
		}
		if input.Author != "" {
			l.Author = input.Author
		}
		if input.Genre != "" {
			l.Genre = input.Genre
		}
		return l, nil
	})
	if err != nil {
		return domain.Listing{}, s.storeError(ctx, "update_listing", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"listing_id": listing.ID,
		"action":     "listing_updated",
	}).Info("listing updated")
	return listing, nil
}

func (s *CatalogService) ToggleAvailability(ctx context.Context, id string) (domain.Listing, error) {
	listing, err := s.store.UpdateWhere(ctx, recordstore.ByID[domain.Listing](id), func(l domain.Listing) (domain.Listing, error) {
		l.Available = !l.Available
		return l, nil
	})
	if err != nil {
		return domain.Listing{}, s.storeError(ctx, "toggle_listing", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"listing_id": listing.ID,
		"available":  listing.Available,
		"action":     "listing_toggled",
	}).Info("listing availability toggled")
	return listing, nil
}

// Delete refuses listings that a pending or accepted proposal still refers to.
// Proposals themselves are never removed here.
func (s *CatalogService) Delete(ctx context.Context, id string) (domain.Listing, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return domain.Listing{}, err
	}

	if s.proposals != nil {
		open, err := s.proposals.HasOpenProposals(ctx, id)
		if err != nil {
			return domain.Listing{}, err
		}
		if open {
			s.log.WithFields(ctx, logger.Fields{
				"listing_id": id,
				"action":     "listing_delete_blocked",
			}).Warn("listing delete blocked by open exchange")
			return domain.Listing{}, ErrListingInExchange
		}
	}

	listing, err := s.store.DeleteWhere(ctx, recordstore.ByID[domain.Listing](id))
	if err != nil {
		return domain.Listing{}, s.storeError(ctx, "delete_listing", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"listing_id": listing.ID,
		"action":     "listing_deleted",
	}).Info("listing deleted")
	return listing, nil
}

func (s *CatalogService) resolveOwner(ctx context.Context, ownerID string) (string, error) {
	if s.owners == nil {
		return "", nil
	}
	name, err := s.owners.OwnerName(ctx, ownerID)
	if err != nil {
		if commonerrors.IsCategory(err, commonerrors.CategoryNotFound) {
			return "", ErrOwnerNotFound
		}
		return "", err
	}
	return name, nil
}

func (s *CatalogService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, recordstore.ErrNotFound):
		return ErrListingNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"op":     op,
		"action": "listing_store_failed",
	}).Errorf("listing store failed: %v", err)
	return commonerrors.ErrStorage.WithCause(err)
}
