// Package references answers cross-domain lookups between accounts, listings
// and exchanges. The resolver is handed to the services before they exist and
// bound afterwards, so catalog and exchange never import each other.
package references

import (
	"context"
	"sync/atomic"

	accountdomain "github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	catalogdomain "github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

type Accounts interface {
	GetByID(ctx context.Context, id string) (accountdomain.Profile, error)
}

type Listings interface {
	GetByID(ctx context.Context, id string) (catalogdomain.Listing, error)
}

type Proposals interface {
	HasOpenProposals(ctx context.Context, listingID string) (bool, error)
}

type targets struct {
	accounts  Accounts
	listings  Listings
	proposals Proposals
}

type Resolver struct {
	bound atomic.Pointer[targets]
}

func NewResolver() *Resolver {
	return &Resolver{}
}

func (r *Resolver) Bind(accounts Accounts, listings Listings, proposals Proposals) {
	r.bound.Store(&targets{accounts: accounts, listings: listings, proposals: proposals})
}

func (r *Resolver) load() (*targets, error) {
	t := r.bound.Load()
	if t == nil {
		return nil, commonerrors.ErrInternalError.WithCause(errUnbound)
	}
	return t, nil
}

// OwnerName returns the display name of an account; a missing account is a
// NotFound domain error.
func (r *Resolver) OwnerName(ctx context.Context, accountID string) (string, error) {
	t, err := r.load()
	if err != nil {
		return "", err
	}
	profile, err := t.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return profile.Name, nil
}

func (r *Resolver) AccountExists(ctx context.Context, accountID string) (bool, error) {
	t, err := r.load()
	if err != nil {
		return false, err
	}
	_, err = t.accounts.GetByID(ctx, accountID)
	return existence(err)
}

func (r *Resolver) ListingExists(ctx context.Context, listingID string) (bool, error) {
	t, err := r.load()
	if err != nil {
		return false, err
	}
	_, err = t.listings.GetByID(ctx, listingID)
	return existence(err)
}

func (r *Resolver) HasOpenProposals(ctx context.Context, listingID string) (bool, error) {
	t, err := r.load()
	if err != nil {
		return false, err
	}
	if t.proposals == nil {
		return false, nil
	}
	return t.proposals.HasOpenProposals(ctx, listingID)
}

func existence(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case commonerrors.IsCategory(err, commonerrors.CategoryNotFound):
		return false, nil
	default:
		return false, err
	}
}
