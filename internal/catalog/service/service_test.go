package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AlibekovAA/book-exchange/backend/internal/catalog/domain"
	"github.com/AlibekovAA/book-exchange/backend/internal/catalog/service"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/clock"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/book-exchange/backend/internal/common/crypto"
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
	"github.com/AlibekovAA/book-exchange/backend/internal/common/logger"
	"github.com/AlibekovAA/book-exchange/backend/internal/recordstore"
)

var errUnknownAccount = commonerrors.NewNotFoundError("ACCOUNT_NOT_FOUND", "account not found")

type mockOwners struct {
	ownerNameFunc func(ctx context.Context, accountID string) (string, error)
}

func (m *mockOwners) OwnerName(ctx context.Context, accountID string) (string, error) {
	if m.ownerNameFunc != nil {
		return m.ownerNameFunc(ctx, accountID)
	}
	if accountID == "ann" {
		return "Ann", nil
	}
	return "", errUnknownAccount
}

type mockGuard struct {
	hasOpenFunc func(ctx context.Context, listingID string) (bool, error)
}

func (m *mockGuard) HasOpenProposals(ctx context.Context, listingID string) (bool, error) {
	if m.hasOpenFunc != nil {
		return m.hasOpenFunc(ctx, listingID)
	}
	return false, nil
}

type failingStore struct {
	recordstore.Store[domain.Listing]
}

func (failingStore) LoadAll(context.Context) ([]domain.Listing, error) {
	return nil, &recordstore.StorageError{Collection: "listings", Op: "load_all", Err: errors.New("disk on fire")}
}

func setupCatalogService(t *testing.T) (*service.CatalogService, *mockOwners, *mockGuard, *clock.MockClock) {
	t.Helper()

	log, _ := logger.New("", "test", "error")
	store, err := recordstore.OpenFileStore[domain.Listing](constants.ListingsCollection, t.TempDir(), commoncrypto.NewUUIDGenerator(), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	owners := &mockOwners{}
	guard := &mockGuard{}
	mockClock := clock.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	svc := service.NewCatalogService(service.CatalogServiceDeps{
		Store:     store,
		Owners:    owners,
		Proposals: guard,
		Clock:     mockClock,
		Log:       log,
	})
	return svc, owners, guard, mockClock
}

func dune() service.CreateInput {
	return service.CreateInput{Title: "Dune", Author: "Herbert", OwnerID: "ann"}
}

func TestCatalogService_Create_Defaults(t *testing.T) {
	svc, _, _, mockClock := setupCatalogService(t)

	listing, err := svc.Create(context.Background(), dune())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if listing.ID == "" {
		t.Error("expected id")
	}
	if !listing.Available {
		t.Error("new listing must be available")
	}
	if listing.Genre != "Uncategorized" {
		t.Errorf("expected default genre, got %q", listing.Genre)
	}
	if listing.OwnerName != "Ann" {
		t.Errorf("expected owner name snapshot, got %q", listing.OwnerName)
	}
	if listing.Image != nil {
		t.Errorf("expected no image, got %v", *listing.Image)
	}
	if !listing.CreatedAt.Equal(mockClock.Now()) {
		t.Errorf("unexpected createdAt %v", listing.CreatedAt)
	}
}

func TestCatalogService_Create_KeepsExplicitOwnerNameAndGenre(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)

	input := dune()
	input.OwnerName = "Annie"
	input.Genre = "Sci-Fi"

	listing, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.OwnerName != "Annie" || listing.Genre != "Sci-Fi" {
		t.Errorf("unexpected listing: %+v", listing)
	}
}

func TestCatalogService_Create_Validation(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)
	ctx := context.Background()

	for _, input := range []service.CreateInput{
		{Author: "Herbert", OwnerID: "ann"},
		{Title: "Dune", OwnerID: "ann"},
		{Title: "Dune", Author: "Herbert"},
		{Title: "   ", Author: "Herbert", OwnerID: "ann"},
	} {
		if _, err := svc.Create(ctx, input); !errors.Is(err, commonerrors.ErrMissingFields) {
			t.Errorf("input %+v: expected ErrMissingFields, got %v", input, err)
		}
	}

	input := dune()
	input.OwnerID = "ghost"
	_, err := svc.Create(ctx, input)
	if !errors.Is(err, service.ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
	if !commonerrors.IsCategory(err, commonerrors.CategoryValidation) {
		t.Error("unknown owner must be a validation error")
	}

	all, _ := svc.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected nothing persisted, got %d", len(all))
	}
}

func TestCatalogService_ListByOwner(t *testing.T) {
	svc, owners, _, _ := setupCatalogService(t)
	ctx := context.Background()
	owners.ownerNameFunc = func(_ context.Context, id string) (string, error) { return id, nil }

	for _, owner := range []string{"ann", "bob", "ann"} {
		input := dune()
		input.OwnerID = owner
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	annListings, err := svc.ListByOwner(ctx, "ann")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(annListings) != 2 {
		t.Errorf("expected 2 listings for ann, got %d", len(annListings))
	}

	none, err := svc.ListByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestCatalogService_GetByID(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)
	ctx := context.Background()

	created, _ := svc.Create(ctx, dune())
	got, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != created {
		t.Errorf("expected %+v, got %+v", created, got)
	}

	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, service.ErrListingNotFound) {
		t.Errorf("expected ErrListingNotFound, got %v", err)
	}
}

func TestCatalogService_ToggleAvailabilityTwiceRestores(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, dune())

	once, err := svc.ToggleAvailability(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	flipped := created
	flipped.Available = false
	if once != flipped {
		t.Errorf("toggle must flip only availability: got %+v", once)
	}

	twice, err := svc.ToggleAvailability(ctx, created.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if twice != created {
		t.Errorf("two toggles must restore the original: got %+v", twice)
	}

	if _, err := svc.ToggleAvailability(ctx, "missing"); !errors.Is(err, service.ErrListingNotFound) {
		t.Errorf("expected ErrListingNotFound, got %v", err)
	}
}

func TestCatalogService_Update(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, dune())

	updated, err := svc.Update(ctx, created.ID, service.UpdateInput{Genre: "Sci-Fi"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Genre != "Sci-Fi" || updated.Title != "Dune" || updated.Author != "Herbert" {
		t.Errorf("unexpected listing: %+v", updated)
	}

	if _, err := svc.Update(ctx, "missing", service.UpdateInput{Title: "x"}); !errors.Is(err, service.ErrListingNotFound) {
		t.Errorf("expected ErrListingNotFound, got %v", err)
	}
}

func TestCatalogService_Delete(t *testing.T) {
	svc, _, guard, _ := setupCatalogService(t)
	ctx := context.Background()
	created, _ := svc.Create(ctx, dune())

	guard.hasOpenFunc = func(_ context.Context, id string) (bool, error) { return id == created.ID, nil }
	if _, err := svc.Delete(ctx, created.ID); !errors.Is(err, service.ErrListingInExchange) {
		t.Fatalf("expected ErrListingInExchange, got %v", err)
	}

	guard.hasOpenFunc = nil
	removed, err := svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed != created {
		t.Errorf("expected removed listing %+v, got %+v", created, removed)
	}

	if _, err := svc.Delete(ctx, created.ID); !errors.Is(err, service.ErrListingNotFound) {
		t.Errorf("expected ErrListingNotFound, got %v", err)
	}
}

func TestCatalogService_Delete_MissingListingIsNotFoundEvenWhenGuarded(t *testing.T) {
	svc, _, guard, _ := setupCatalogService(t)
	ctx := context.Background()

	guardCalls := 0
	guard.hasOpenFunc = func(context.Context, string) (bool, error) {
		guardCalls++
		return true, nil
	}

	if _, err := svc.Delete(ctx, "missing"); !errors.Is(err, service.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}
	if guardCalls != 0 {
		t.Errorf("guard should not be consulted for a missing listing, got %d calls", guardCalls)
	}
}

func TestCatalogService_ConcurrentCreates(t *testing.T) {
	svc, _, _, _ := setupCatalogService(t)
	ctx := context.Background()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := dune()
			input.Title = fmt.Sprintf("Dune %d", i)
			if _, err := svc.Create(ctx, input); err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, _ := svc.ListAll(ctx)
	if len(all) != n {
		t.Fatalf("expected %d listings, got %d", n, len(all))
	}
	ids := make(map[string]bool, n)
	for _, l := range all {
		ids[l.ID] = true
	}
	if len(ids) != n {
		t.Errorf("expected %d distinct ids, got %d", n, len(ids))
	}
}

func TestCatalogService_StorageFailureIsOpaque(t *testing.T) {
	log, _ := logger.New("", "test", "error")
	svc := service.NewCatalogService(service.CatalogServiceDeps{Store: failingStore{}, Log: log})

	_, err := svc.ListAll(context.Background())
	if !errors.Is(err, commonerrors.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	domainErr, _ := commonerrors.AsDomainError(err)
	if domainErr.Message() != "storage operation failed" {
		t.Errorf("storage detail leaked into message: %q", domainErr.Message())
	}
}
