package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

func floatPtr(f float64) *float64 { return &f }

func sampleListing(id string) *domain.ListingRecord {
	return &domain.ListingRecord{
		ListingID:   id,
		ListingType: domain.ListingTypeSale,
		Ownership:   domain.OwnershipFreehold,
		PriceIDR:    floatPtr(2500000000),
	}
}

func TestListingStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()

	require.NoError(t, store.Insert(ctx, sampleListing("a")))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.ListingID)
	require.NotNil(t, got.PriceIDR)
	assert.Equal(t, 2500000000.0, *got.PriceIDR)
}

func TestListingStore_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()

	require.NoError(t, store.Insert(ctx, sampleListing("a")))
	err := store.Insert(ctx, sampleListing("a"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestListingStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.ListingRecord{}), storage.ErrInvalidInput)
}

func TestListingStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_InsertBulkAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()
	require.NoError(t, store.Insert(ctx, sampleListing("existing")))

	err := store.InsertBulk(ctx, []*domain.ListingRecord{
		sampleListing("new"),
		sampleListing("existing"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "new")
	assert.ErrorIs(t, err, storage.ErrNotFound, "failed batch must not partially apply")
}

func TestListingStore_GetAllSorted(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()
	require.NoError(t, store.InsertBulk(ctx, []*domain.ListingRecord{
		sampleListing("c"), sampleListing("a"), sampleListing("b"),
	}))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ListingID)
	assert.Equal(t, "b", got[1].ListingID)
	assert.Equal(t, "c", got[2].ListingID)
}

func TestListingStore_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()
	require.NoError(t, store.Insert(ctx, sampleListing("old")))

	require.NoError(t, store.ReplaceAll(ctx, []*domain.ListingRecord{
		sampleListing("fresh-1"), sampleListing("fresh-2"),
	}))

	_, err := store.GetByID(ctx, "old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListingStore_GetByListingType(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()

	rent := sampleListing("rent-1")
	rent.ListingType = domain.ListingTypeRent
	require.NoError(t, store.InsertBulk(ctx, []*domain.ListingRecord{
		sampleListing("sale-1"), rent,
	}))

	got, err := store.GetByListingType(ctx, domain.ListingTypeRent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rent-1", got[0].ListingID)
}

func TestListingStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewListingStore()
	require.NoError(t, store.Insert(ctx, sampleListing("a")))

	got, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	got.ListingID = "tampered"
	got.PriceIDR = nil

	again, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", again.ListingID)
	assert.NotNil(t, again.PriceIDR)
}
