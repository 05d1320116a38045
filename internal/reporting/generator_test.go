package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func testTable() []*domain.EnrichedRecord {
	listed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	scraped := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	return []*domain.EnrichedRecord{
		{
			ListingRecord: domain.ListingRecord{
				ListingID:       "sale-1",
				ListingType:     domain.ListingTypeSale,
				Ownership:       domain.OwnershipLeasehold,
				PriceIDR:        ptr(2500000000.0),
				BuildingSizeSqm: ptr(250.0),
				Region:          ptr("Badung"),
				ListingDate:     &listed,
			},
			PriceSaleIDR:        ptr(2500000000.0),
			PricePerSqm:         ptr(10000000.0),
			LeaseYearsRemaining: ptr(25),
			PPSY:                ptr(400000.0),
			OutlierFlags:        map[string]bool{domain.MetricPriceSale: true},
		},
		{
			ListingRecord: domain.ListingRecord{
				ListingID:       "sale-2",
				ListingType:     domain.ListingTypeSale,
				Ownership:       domain.OwnershipFreehold,
				PriceIDR:        ptr(4000000000.0),
				BuildingSizeSqm: ptr(200.0),
				Region:          ptr("Badung"),
				ScrapedAt:       &scraped,
			},
			PriceSaleIDR: ptr(4000000000.0),
			PricePerSqm:  ptr(20000000.0),
		},
		{
			ListingRecord: domain.ListingRecord{
				ListingID:   "rent-1",
				ListingType: domain.ListingTypeRent,
				Ownership:   domain.OwnershipUnknown,
				Region:      ptr("Gianyar"),
				ScrapedAt:   &scraped,
			},
			RentPriceMonthNorm: ptr(30000000.0),
			ADR:                ptr(1000000.0),
		},
		{
			// Degraded row: no price, no size, unresolved leasehold.
			ListingRecord: domain.ListingRecord{
				ListingID:   "sale-3",
				ListingType: domain.ListingTypeSale,
				Ownership:   domain.OwnershipLeasehold,
			},
		},
	}
}

func testGenerator() *Generator {
	return NewGenerator(memory.NewSnapshotStore()).
		WithClock(func() time.Time { return fixedNow })
}

func TestGenerateFromRecords_DataSummary(t *testing.T) {
	report := testGenerator().GenerateFromRecords(testTable())

	assert.Equal(t, fixedNow, report.GeneratedAt)
	assert.Equal(t, 4, report.DataSummary.TotalListings)
	assert.Equal(t, 3, report.DataSummary.SaleListings)
	assert.Equal(t, 1, report.DataSummary.RentListings)
	assert.Equal(t, 2, report.DataSummary.LeaseholdListings)
	assert.Equal(t, 1, report.DataSummary.FreeholdListings)
	assert.Equal(t, 2, report.DataSummary.RegionCount)

	// Listing date wins over scraped date for the range start.
	require.NotNil(t, report.DataSummary.DateRangeStart)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *report.DataSummary.DateRangeStart)
	require.NotNil(t, report.DataSummary.DateRangeEnd)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *report.DataSummary.DateRangeEnd)
}

func TestGenerateFromRecords_DataQuality(t *testing.T) {
	report := testGenerator().GenerateFromRecords(testTable())

	quality := report.DataQuality
	assert.Equal(t, 2, quality.MissingSizes)
	assert.Equal(t, 2, quality.PriceParseFailures)
	assert.Equal(t, 1, quality.UnresolvedLeaseYears)

	// 2 of 4 rows have prices: exactly at the 50% floor, passes.
	// Lease resolution is 1 of 2, below the 80% floor.
	assert.False(t, quality.AllChecksPassed)
	byName := make(map[string]QualityCheckRow)
	for _, check := range quality.Checks {
		byName[check.Name] = check
	}
	assert.True(t, byName["rows present"].Pass)
	assert.True(t, byName["price coverage"].Pass)
	assert.True(t, byName["size coverage"].Pass)
	assert.False(t, byName["lease years resolved"].Pass)

	require.Len(t, quality.OutlierCounts, 1)
	assert.Equal(t, domain.MetricPriceSale, quality.OutlierCounts[0].Metric)
	assert.Equal(t, 1, quality.OutlierCounts[0].Flagged)
	assert.InDelta(t, 0.25, quality.OutlierCounts[0].Share, 1e-9)
}

func TestGenerateFromRecords_MetricSummaries(t *testing.T) {
	report := testGenerator().GenerateFromRecords(testTable())

	byMetric := make(map[string]MetricSummaryRow)
	for _, row := range report.MetricSummaries {
		byMetric[row.Metric] = row
	}

	sale, ok := byMetric[domain.MetricPriceSale]
	require.True(t, ok)
	assert.Equal(t, 2, sale.Count)
	assert.InDelta(t, 3250000000.0, sale.Mean, 1e-6)
	assert.InDelta(t, 3250000000.0, sale.Median, 1e-6)
	assert.Equal(t, 2500000000.0, sale.Min)
	assert.Equal(t, 4000000000.0, sale.Max)

	ppsy, ok := byMetric[domain.MetricPPSY]
	require.True(t, ok)
	assert.Equal(t, 1, ppsy.Count)
	assert.Equal(t, 400000.0, ppsy.Median)

	// yield_pct_proxy is absent everywhere, no row for it.
	_, ok = byMetric[domain.MetricYieldProxy]
	assert.False(t, ok)
}

func TestGenerateFromRecords_RegionBreakdown(t *testing.T) {
	report := testGenerator().GenerateFromRecords(testTable())

	require.Len(t, report.RegionBreakdown, 2)
	assert.Equal(t, "Badung", report.RegionBreakdown[0].Region)
	assert.Equal(t, 2, report.RegionBreakdown[0].Listings)
	require.NotNil(t, report.RegionBreakdown[0].MedianPricePerSqm)
	assert.InDelta(t, 15000000.0, *report.RegionBreakdown[0].MedianPricePerSqm, 1e-6)

	assert.Equal(t, "Gianyar", report.RegionBreakdown[1].Region)
	assert.Equal(t, 1, report.RegionBreakdown[1].Listings)
	assert.Nil(t, report.RegionBreakdown[1].MedianPricePerSqm)
}

func TestGenerate_LoadsSnapshotFromStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()
	require.NoError(t, store.InsertBulk(ctx, "snap-1", testTable()))

	gen := NewGenerator(store).WithClock(func() time.Time { return fixedNow })
	report, err := gen.Generate(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", report.SnapshotID)
	assert.Equal(t, 4, report.DataSummary.TotalListings)
}

func TestGenerate_MissingSnapshot(t *testing.T) {
	gen := testGenerator()
	_, err := gen.Generate(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRenderMarkdown(t *testing.T) {
	report := testGenerator().GenerateFromRecords(testTable())
	report.SnapshotID = "snap-1"

	md := RenderMarkdown(report)

	assert.Contains(t, md, "# Listing Snapshot Report")
	assert.Contains(t, md, "Generated: 2026-08-28T12:00:00Z")
	assert.Contains(t, md, "snap-1")
	assert.Contains(t, md, "| Total Listings | 4 |")
	assert.Contains(t, md, "**Some checks failed.**")
	assert.Contains(t, md, "| price_sale_idr | 1 | 25.00% |")
	assert.Contains(t, md, "## Region Breakdown")
	assert.Contains(t, md, "| Badung | 2 | 15000000 |")
}

func TestRenderMarkdown_Deterministic(t *testing.T) {
	gen := testGenerator()
	first := RenderMarkdown(gen.GenerateFromRecords(testTable()))
	second := RenderMarkdown(gen.GenerateFromRecords(testTable()))
	assert.Equal(t, first, second)
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV(testTable())

	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "listing_id,listing_type,ownership"))
	assert.True(t, strings.HasPrefix(lines[1], "sale-1,SALE,LEASEHOLD"))
	assert.Contains(t, lines[1], ",true")
	assert.Contains(t, lines[2], ",false")

	// Absent values render as empty cells.
	assert.Contains(t, lines[4], ",,")
}

func TestRenderCSV_QuotesCommas(t *testing.T) {
	records := testTable()[:1]
	records[0].Area = ptr("Canggu, Berawa")

	csv := RenderCSV(records)
	assert.Contains(t, csv, `"Canggu, Berawa"`)
}
