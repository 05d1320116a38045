package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

func testEnriched(id string) *domain.EnrichedRecord {
	scraped := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	return &domain.EnrichedRecord{
		ListingRecord: domain.ListingRecord{
			ListingID:      id,
			Title:          "3BR Villa Canggu",
			ListingType:    domain.ListingTypeSale,
			Ownership:      domain.OwnershipLeasehold,
			PropertyStatus: domain.PropertyStatusReady,
			PropertyType:   "villa",
			PriceIDR:       ptr(2500000000.0),
			Bedrooms:       ptr(3),
			LeaseDuration:  ptr("25 tahun"),
			Region:         ptr("Badung"),
			ScrapedAt:      &scraped,
		},
		PriceSaleIDR:        ptr(2500000000.0),
		PricePerSqm:         ptr(10000000.0),
		LeaseYearsRemaining: ptr(25),
		PPSY:                ptr(400000.0),
		DaysListed:          ptr(12),
		OutlierFlags:        map[string]bool{domain.MetricPriceSale: true},
	}
}

func TestSnapshotStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "snap-001", []*domain.EnrichedRecord{
		testEnriched("lst-a"), testEnriched("lst-b"),
	}))

	records, err := store.GetBySnapshot(ctx, "snap-001")
	require.NoError(t, err)
	require.Len(t, records, 2)

	got := records[0]
	assert.Equal(t, "lst-a", got.ListingID)
	assert.Equal(t, domain.ListingTypeSale, got.ListingType)
	assert.Equal(t, domain.OwnershipLeasehold, got.Ownership)
	require.NotNil(t, got.PriceSaleIDR)
	assert.Equal(t, 2500000000.0, *got.PriceSaleIDR)
	require.NotNil(t, got.PricePerSqm)
	assert.Equal(t, 10000000.0, *got.PricePerSqm)
	require.NotNil(t, got.LeaseYearsRemaining)
	assert.Equal(t, 25, *got.LeaseYearsRemaining)
	require.NotNil(t, got.PPSY)
	assert.Equal(t, 400000.0, *got.PPSY)
	require.NotNil(t, got.DaysListed)
	assert.Equal(t, 12, *got.DaysListed)
	assert.Nil(t, got.RentPriceMonthNorm)
	assert.Nil(t, got.PPSYAssumed)
	assert.True(t, got.IsOutlier(domain.MetricPriceSale))
	assert.False(t, got.IsOutlier(domain.MetricPPSY))
	require.NotNil(t, got.ScrapedAt)
	assert.True(t, got.ScrapedAt.Equal(time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)))
}

func TestSnapshotStore_DuplicateSnapshotRejected(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "snap-dup", []*domain.EnrichedRecord{testEnriched("lst-a")}))
	err := store.InsertBulk(ctx, "snap-dup", []*domain.EnrichedRecord{testEnriched("lst-b")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSnapshotStore_GetMissingSnapshot(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	_, err := store.GetBySnapshot(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotStore_PreservesRowOrder(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "snap-order", []*domain.EnrichedRecord{
		testEnriched("lst-z"), testEnriched("lst-a"), testEnriched("lst-m"),
	}))

	records, err := store.GetBySnapshot(ctx, "snap-order")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "lst-z", records[0].ListingID)
	assert.Equal(t, "lst-a", records[1].ListingID)
	assert.Equal(t, "lst-m", records[2].ListingID)
}

func TestSnapshotStore_ListSnapshots(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "snap-b", []*domain.EnrichedRecord{testEnriched("lst-1")}))
	require.NoError(t, store.InsertBulk(ctx, "snap-a", []*domain.EnrichedRecord{testEnriched("lst-2")}))

	ids, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-a", "snap-b"}, ids)
}
