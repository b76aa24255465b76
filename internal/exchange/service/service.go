package service

import (
	"context"
	"errors"
	"strings"

	"github.com/AlibekovAA/book-exchange/backend/internal/common/clock"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/exchange/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/observability/metrics"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
)

// ReferenceLookup answers read-only existence questions about other collections.
type ReferenceLookup interface {
	AccountExists(ctx context.Context, accountID string) (bool, error)
	ListingExists(ctx context.Context, listingID string) (bool, error)
}

// Publisher receives every committed change. Publish must not block.
type Publisher interface {
	Publish(event domain.Event)
}

type LedgerServiceDeps struct {
	Store     recordstore.Store[domain.Proposal]
	Lookup    ReferenceLookup
	Publisher Publisher
	Clock     clock.Clock
	Log       *logger.Logger
}

// LedgerService owns exchange proposals and their status lifecycle.
type LedgerService struct {
	store     recordstore.Store[domain.Proposal]
	lookup    ReferenceLookup
	publisher Publisher
	clock     clock.Clock
	log       *logger.Logger
}

func NewLedgerService(deps LedgerServiceDeps) *LedgerService {
	c := deps.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	return &LedgerService{
		store:     deps.Store,
		lookup:    deps.Lookup,
		publisher: deps.Publisher,
		clock:     c,
		log:       deps.Log,
	}
}

type CreateInput struct {
	OwnerID            string
	RequesterID        string
	RequestedListingID string
	OfferedListingID   string
	Message            string
}

func (s *LedgerService) ListAll(ctx context.Context) ([]domain.Proposal, error) {
	proposals, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, s.storeError(ctx, "list_exchanges", err)
	}
	return proposals, nil
}

func (s *LedgerService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Proposal, error) {
	return s.listWhere(ctx, func(p domain.Proposal) bool { return p.OwnerID == ownerID })
}

func (s *LedgerService) ListByRequester(ctx context.Context, requesterID string) ([]domain.Proposal, error) {
	return s.listWhere(ctx, func(p domain.Proposal) bool { return p.RequesterID == requesterID })
}

func (s *LedgerService) GetByID(ctx context.Context, id string) (domain.Proposal, error) {
	proposals, err := s.ListAll(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}
	idx, found := recordstore.FindFirst(proposals, recordstore.ByID[domain.Proposal](id))
	if !found {
		return domain.Proposal{}, ErrExchangeNotFound
	}
	return proposals[idx], nil
}

// HasOpenProposals reports whether a pending or accepted proposal references the listing.
func (s *LedgerService) HasOpenProposals(ctx context.Context, listingID string) (bool, error) {
	open, err := s.listWhere(ctx, func(p domain.Proposal) bool {
		return p.Status.IsOpen() && p.References(listingID)
	})
	if err != nil {
		return false, err
	}
	return len(open) > 0, nil
}

func (s *LedgerService) Create(ctx context.Context, input CreateInput) (domain.Proposal, error) {
	s.log.WithFields(ctx, logger.Fields{
		"owner_id":     input.OwnerID,
		"requester_id": input.RequesterID,
		"action":       "exchange_create_attempt",
	}).Info("exchange create attempt")

	if input.OwnerID == "" || input.RequesterID == "" || input.RequestedListingID == "" || input.OfferedListingID == "" {
		return domain.Proposal{}, commonerrors.ErrMissingFields
	}
	if input.RequestedListingID == input.OfferedListingID {
		return domain.Proposal{}, ErrSameListing
	}
	if input.OwnerID == input.RequesterID {
		return domain.Proposal{}, ErrSelfExchange
	}

	if err := s.checkReferences(ctx, input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"owner_id":     input.OwnerID,
			"requester_id": input.RequesterID,
			"action":       "exchange_create_reference_failed",
		}).Warnf("exchange create failed: %v", err)
		return domain.Proposal{}, err
	}

	now := s.clock.Now()
	proposal, err := s.store.Append(ctx, domain.Proposal{
		OwnerID:            input.OwnerID,
		RequesterID:        input.RequesterID,
		RequestedListingID: input.RequestedListingID,
		OfferedListingID:   input.OfferedListingID,
		Message:            strings.TrimSpace(input.Message),
		Status:             domain.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return domain.Proposal{}, s.storeError(ctx, "create_exchange", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"exchange_id": proposal.ID,
		"action":      "exchange_created",
	}).Info("exchange created")
	s.publish(domain.EventCreated, proposal)
	return proposal, nil
}

// SetStatus checks the transition against the stored status inside the
// collection's critical section, so two racing updates cannot both succeed
// from the same starting state.
func (s *LedgerService) SetStatus(ctx context.Context, id, newStatus string) (domain.Proposal, error) {
	next, ok := domain.ParseStatus(newStatus)
	if !ok {
		return domain.Proposal{}, ErrInvalidStatus
	}

	var from domain.Status
	proposal, err := s.store.UpdateWhere(ctx, recordstore.ByID[domain.Proposal](id), func(p domain.Proposal) (domain.Proposal, error) {
		from = p.Status
		if !p.Status.CanTransition(next) {
			return p, ErrInvalidTransition
		}
		p.Status = next
		p.UpdatedAt = s.clock.Now()
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			metrics.ExchangeTransitionsTotal.WithLabelValues(string(from), string(next), "rejected").Inc()
			s.log.WithFields(ctx, logger.Fields{
				"exchange_id": id,
				"from":        string(from),
				"to":          string(next),
				"action":      "exchange_transition_rejected",
			}).Warn("exchange transition rejected")
			return domain.Proposal{}, err
		}
		return domain.Proposal{}, s.storeError(ctx, "set_exchange_status", err)
	}

	metrics.ExchangeTransitionsTotal.WithLabelValues(string(from), string(next), "applied").Inc()
	s.log.WithFields(ctx, logger.Fields{
		"exchange_id": id,
		"from":        string(from),
		"to":          string(next),
		"action":      "exchange_status_changed",
	}).Info("exchange status changed")
	s.publish(domain.EventStatusChanged, proposal)
	return proposal, nil
}

func (s *LedgerService) Delete(ctx context.Context, id string) (domain.Proposal, error) {
	proposal, err := s.store.DeleteWhere(ctx, recordstore.ByID[domain.Proposal](id))
	if err != nil {
		return domain.Proposal{}, s.storeError(ctx, "delete_exchange", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"exchange_id": id,
		"status":      string(proposal.Status),
		"action":      "exchange_deleted",
	}).Info("exchange deleted")
	s.publish(domain.EventDeleted, proposal)
	return proposal, nil
}

func (s *LedgerService) checkReferences(ctx context.Context, input CreateInput) error {
	if s.lookup == nil {
		return nil
	}

	for _, id := range []string{input.OwnerID, input.RequesterID} {
		exists, err := s.lookup.AccountExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrAccountNotFound
		}
	}

	for _, id := range []string{input.RequestedListingID, input.OfferedListingID} {
		exists, err := s.lookup.ListingExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrListingNotFound
		}
	}
	return nil
}

func (s *LedgerService) listWhere(ctx context.Context, match recordstore.Predicate[domain.Proposal]) ([]domain.Proposal, error) {
	proposals, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return recordstore.Filter(proposals, match), nil
}

func (s *LedgerService) publish(eventType domain.EventType, proposal domain.Proposal) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(domain.Event{Type: eventType, Exchange: proposal})
}

func (s *LedgerService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, recordstore.ErrNotFound):
		return ErrExchangeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.log.WithFields(ctx, logger.Fields{
		"op":     op,
		"action": "exchange_store_failed",
	}).Errorf("exchange store failed: %v", err)
	return commonerrors.ErrStorage.WithCause(err)
}
