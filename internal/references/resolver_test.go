package references_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountdomain "github.com/AlibekovAA/book-exchange/backend/internal/account/domain"
	catalogdomain "github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/references"
)

var errNotFound = commonerrors.NewNotFoundError("NOPE", "not found")

type mockAccounts map[string]string

func (m mockAccounts) GetByID(_ context.Context, id string) (accountdomain.Profile, error) {
	name, ok := m[id]
	if !ok {
		return accountdomain.Profile{}, errNotFound
	}
	return accountdomain.Profile{ID: id, Name: name}, nil
}

type mockListings struct {
	ids map[string]bool
	err error
}

func (m mockListings) GetByID(_ context.Context, id string) (catalogdomain.Listing, error) {
	if m.err != nil {
		return catalogdomain.Listing{}, m.err
	}
	if !m.ids[id] {
		return catalogdomain.Listing{}, errNotFound
	}
	return catalogdomain.Listing{ID: id}, nil
}

type mockProposals func(ctx context.Context, listingID string) (bool, error)

func (m mockProposals) HasOpenProposals(ctx context.Context, listingID string) (bool, error) {
	return m(ctx, listingID)
}

func TestResolver_Unbound(t *testing.T) {
	r := references.NewResolver()

	_, err := r.AccountExists(context.Background(), "ann")
	assert.True(t, errors.Is(err, commonerrors.ErrInternalError))
}

func TestResolver_Lookups(t *testing.T) {
	r := references.NewResolver()
	r.Bind(
		mockAccounts{"ann": "Ann"},
		mockListings{ids: map[string]bool{"dune": true}},
		mockProposals(func(_ context.Context, id string) (bool, error) { return id == "dune", nil }),
	)
	ctx := context.Background()

	name, err := r.OwnerName(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)

	_, err = r.OwnerName(ctx, "ghost")
	assert.True(t, commonerrors.IsCategory(err, commonerrors.CategoryNotFound))

	ok, err := r.AccountExists(ctx, "ann")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AccountExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.ListingExists(ctx, "dune")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.ListingExists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, ok)

	open, err := r.HasOpenProposals(ctx, "dune")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestResolver_StorageFailurePropagates(t *testing.T) {
	r := references.NewResolver()
	r.Bind(mockAccounts{}, mockListings{err: commonerrors.ErrStorage}, nil)

	_, err := r.ListingExists(context.Background(), "dune")
	assert.True(t, errors.Is(err, commonerrors.ErrStorage))

	open, err := r.HasOpenProposals(context.Background(), "dune")
	require.NoError(t, err)
	assert.False(t, open)
}
