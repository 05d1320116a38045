package clickhouse

import (
	"context"
	"fmt"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Each enriched table is written once under its snapshot fingerprint;
// row_index preserves the enrichment order on read.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const enrichedColumns = `
	snapshot_id, row_index,
	listing_id, url, title,
	listing_type, ownership, property_status, property_type,
	price_idr, price_usd, rent_period,
	bedrooms, bathrooms, building_size_sqm, land_size_sqm,
	lease_duration, lease_expiry_year, description,
	company, region, area, availability,
	listing_date, scraped_at,
	price_sale_idr, rent_price_month_norm, adr,
	price_per_sqm, price_per_sqm_land,
	lease_years_remaining, ppsy, ppsy_assumed,
	annual_rent_per_sqm, yield_pct_proxy, days_listed,
	outlier_metrics
`

// InsertBulk stores one enriched table under snapshotID. Returns
// ErrDuplicateKey if the snapshot already exists.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshotID string, records []*domain.EnrichedRecord) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree doesn't enforce uniqueness, check explicitly before insert
	exists, err := s.exists(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("check snapshot exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO enriched_listings (`+enrichedColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}

		// Pass nil values directly for Nullable columns
		err = batch.Append(
			snapshotID, uint32(i),
			r.ListingID, r.URL, r.Title,
			string(r.ListingType), string(r.Ownership), string(r.PropertyStatus), r.PropertyType,
			r.PriceIDR, r.PriceUSD, rentPeriodString(r.RentPeriod),
			toNullableInt32(r.Bedrooms), toNullableInt32(r.Bathrooms), r.BuildingSizeSqm, r.LandSizeSqm,
			r.LeaseDuration, toNullableInt32(r.LeaseExpiryYear), r.Description,
			r.Company, r.Region, r.Area, r.Availability,
			r.ListingDate, r.ScrapedAt,
			r.PriceSaleIDR, r.RentPriceMonthNorm, r.ADR,
			r.PricePerSqm, r.PricePerSqmLand,
			toNullableInt32(r.LeaseYearsRemaining), r.PPSY, r.PPSYAssumed,
			r.AnnualRentPerSqm, r.YieldPctProxy, toNullableInt32(r.DaysListed),
			flaggedMetrics(r.OutlierFlags),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySnapshot retrieves the enriched table for snapshotID, in stored order.
func (s *SnapshotStore) GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.EnrichedRecord, error) {
	query := `
		SELECT ` + enrichedColumns + `
		FROM enriched_listings
		WHERE snapshot_id = ?
		ORDER BY row_index ASC
	`

	rows, err := s.conn.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	records, err := scanEnriched(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records, nil
}

// ListSnapshots returns all stored snapshot IDs, sorted ASC.
func (s *SnapshotStore) ListSnapshots(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT snapshot_id
		FROM enriched_listings
		ORDER BY snapshot_id ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot ids: %w", err)
	}
	return ids, nil
}

// exists checks if any row is stored under the given snapshot ID.
func (s *SnapshotStore) exists(ctx context.Context, snapshotID string) (bool, error) {
	query := `
		SELECT count(*) FROM enriched_listings
		WHERE snapshot_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, snapshotID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// rentPeriodString converts *RentPeriod to *string for Nullable(String).
func rentPeriodString(rp *domain.RentPeriod) *string {
	if rp == nil {
		return nil
	}
	v := string(*rp)
	return &v
}

// toNullableInt32 converts *int to *int32 for ClickHouse Nullable(Int32).
func toNullableInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

// fromNullableInt32 converts *int32 back to *int.
func fromNullableInt32(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}

// flaggedMetrics flattens the outlier flag set into an Array(String) column.
func flaggedMetrics(flags map[string]bool) []string {
	out := make([]string, 0, len(flags))
	for metric, flagged := range flags {
		if flagged {
			out = append(out, metric)
		}
	}
	return out
}

// chRows is the subset of driver.Rows used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanEnriched scans multiple rows into a slice of EnrichedRecord.
func scanEnriched(rows chRows) ([]*domain.EnrichedRecord, error) {
	var records []*domain.EnrichedRecord

	for rows.Next() {
		var r domain.EnrichedRecord
		var snapshotID string
		var rowIndex uint32
		var listingType, ownership, propertyStatus string
		var rentPeriod *string
		var bedrooms, bathrooms, leaseExpiryYear, leaseYearsRemaining, daysListed *int32
		var listingDate, scrapedAt *time.Time
		var outlierMetrics []string

		err := rows.Scan(
			&snapshotID, &rowIndex,
			&r.ListingID, &r.URL, &r.Title,
			&listingType, &ownership, &propertyStatus, &r.PropertyType,
			&r.PriceIDR, &r.PriceUSD, &rentPeriod,
			&bedrooms, &bathrooms, &r.BuildingSizeSqm, &r.LandSizeSqm,
			&r.LeaseDuration, &leaseExpiryYear, &r.Description,
			&r.Company, &r.Region, &r.Area, &r.Availability,
			&listingDate, &scrapedAt,
			&r.PriceSaleIDR, &r.RentPriceMonthNorm, &r.ADR,
			&r.PricePerSqm, &r.PricePerSqmLand,
			&leaseYearsRemaining, &r.PPSY, &r.PPSYAssumed,
			&r.AnnualRentPerSqm, &r.YieldPctProxy, &daysListed,
			&outlierMetrics,
		)
		if err != nil {
			return nil, fmt.Errorf("scan enriched row: %w", err)
		}

		r.ListingType = domain.ListingType(listingType)
		r.Ownership = domain.Ownership(ownership)
		r.PropertyStatus = domain.PropertyStatus(propertyStatus)
		if rentPeriod != nil {
			rp := domain.RentPeriod(*rentPeriod)
			r.RentPeriod = &rp
		}
		r.Bedrooms = fromNullableInt32(bedrooms)
		r.Bathrooms = fromNullableInt32(bathrooms)
		r.LeaseExpiryYear = fromNullableInt32(leaseExpiryYear)
		r.LeaseYearsRemaining = fromNullableInt32(leaseYearsRemaining)
		r.DaysListed = fromNullableInt32(daysListed)
		r.ListingDate = listingDate
		r.ScrapedAt = scrapedAt

		r.OutlierFlags = make(map[string]bool, len(outlierMetrics))
		for _, metric := range outlierMetrics {
			r.OutlierFlags[metric] = true
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enriched rows: %w", err)
	}

	return records, nil
}
