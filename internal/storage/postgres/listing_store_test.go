package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

func testListing(id string) *domain.ListingRecord {
	scraped := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)
	rp := domain.RentPeriodMonthly

	return &domain.ListingRecord{
		ListingID:       id,
		URL:             "https://example.com/listings/" + id,
		Title:           "3BR Villa Canggu",
		ListingType:     domain.ListingTypeSale,
		Ownership:       domain.OwnershipLeasehold,
		PropertyStatus:  domain.PropertyStatusReady,
		PropertyType:    "villa",
		PriceIDR:        ptr(2500000000.0),
		RentPeriod:      &rp,
		Bedrooms:        ptr(3),
		Bathrooms:       ptr(2),
		BuildingSizeSqm: ptr(250.0),
		LandSizeSqm:     ptr(400.0),
		LeaseDuration:   ptr("25 tahun"),
		Region:          ptr("Badung"),
		Area:            ptr("Canggu"),
		ScrapedAt:       &scraped,
	}
}

func TestListingStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	listing := testListing("lst-001")
	require.NoError(t, store.Insert(ctx, listing))

	retrieved, err := store.GetByID(ctx, "lst-001")
	require.NoError(t, err)

	assert.Equal(t, listing.ListingID, retrieved.ListingID)
	assert.Equal(t, listing.URL, retrieved.URL)
	assert.Equal(t, listing.ListingType, retrieved.ListingType)
	assert.Equal(t, listing.Ownership, retrieved.Ownership)
	assert.Equal(t, listing.PropertyStatus, retrieved.PropertyStatus)
	assert.Equal(t, listing.PropertyType, retrieved.PropertyType)
	assert.Equal(t, *listing.PriceIDR, *retrieved.PriceIDR)
	assert.Nil(t, retrieved.PriceUSD)
	require.NotNil(t, retrieved.RentPeriod)
	assert.Equal(t, domain.RentPeriodMonthly, *retrieved.RentPeriod)
	assert.Equal(t, *listing.Bedrooms, *retrieved.Bedrooms)
	assert.Equal(t, *listing.BuildingSizeSqm, *retrieved.BuildingSizeSqm)
	assert.Equal(t, *listing.LeaseDuration, *retrieved.LeaseDuration)
	assert.Nil(t, retrieved.LeaseExpiryYear)
	assert.Equal(t, *listing.Region, *retrieved.Region)
	require.NotNil(t, retrieved.ScrapedAt)
	assert.True(t, listing.ScrapedAt.Equal(*retrieved.ScrapedAt))
	assert.Nil(t, retrieved.ListingDate)
}

func TestListingStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testListing("lst-dup")))
	err := store.Insert(ctx, testListing("lst-dup"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestListingStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_InsertBulkRollsBackOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testListing("lst-existing")))

	err := store.InsertBulk(ctx, []*domain.ListingRecord{
		testListing("lst-new"),
		testListing("lst-existing"),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Transaction must have rolled back the first row too.
	_, err = store.GetByID(ctx, "lst-new")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListingStore_GetAllOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.ListingRecord{
		testListing("lst-c"), testListing("lst-a"), testListing("lst-b"),
	}))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lst-a", all[0].ListingID)
	assert.Equal(t, "lst-b", all[1].ListingID)
	assert.Equal(t, "lst-c", all[2].ListingID)
}

func TestListingStore_ReplaceAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testListing("lst-old")))

	require.NoError(t, store.ReplaceAll(ctx, []*domain.ListingRecord{
		testListing("lst-fresh-1"), testListing("lst-fresh-2"),
	}))

	_, err := store.GetByID(ctx, "lst-old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListingStore_GetByListingType(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewListingStore(pool)
	ctx := context.Background()

	rent := testListing("lst-rent")
	rent.ListingType = domain.ListingTypeRent
	require.NoError(t, store.InsertBulk(ctx, []*domain.ListingRecord{
		testListing("lst-sale"), rent,
	}))

	rentals, err := store.GetByListingType(ctx, domain.ListingTypeRent)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, "lst-rent", rentals[0].ListingID)
}
