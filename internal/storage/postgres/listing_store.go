package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

// ListingStore implements storage.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *Pool
}

// NewListingStore creates a new ListingStore.
func NewListingStore(pool *Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

const listingColumns = `
	listing_id, url, title,
	listing_type, ownership, property_status, property_type,
	price_idr, price_usd, rent_period,
	bedrooms, bathrooms, building_size_sqm, land_size_sqm,
	lease_duration, lease_expiry_year, description,
	company, region, area, availability,
	listing_date, scraped_at
`

const insertListingQuery = `
	INSERT INTO listings (` + listingColumns + `
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
	)
`

// Insert adds a new listing. Returns ErrDuplicateKey if listing_id exists.
func (s *ListingStore) Insert(ctx context.Context, l *domain.ListingRecord) error {
	if l == nil || l.ListingID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertListingQuery, insertArgs(l)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// InsertBulk adds multiple listings in one transaction. Fails the entire
// batch on any duplicate or invalid record.
func (s *ListingStore) InsertBulk(ctx context.Context, listings []*domain.ListingRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range listings {
		if l == nil || l.ListingID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertListingQuery, insertArgs(l)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert listing %s: %w", l.ListingID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// ReplaceAll atomically swaps the stored table for a fresh refresh batch.
func (s *ListingStore) ReplaceAll(ctx context.Context, listings []*domain.ListingRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM listings`); err != nil {
		return fmt.Errorf("clear listings: %w", err)
	}

	for _, l := range listings {
		if l == nil || l.ListingID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertListingQuery, insertArgs(l)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert listing %s: %w", l.ListingID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(ctx context.Context, listingID string) (*domain.ListingRecord, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE listing_id = $1
	`

	row := s.pool.QueryRow(ctx, query, listingID)
	l, err := scanListing(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return l, nil
}

// GetAll retrieves every listing, ordered by listing_id ASC.
func (s *ListingStore) GetAll(ctx context.Context) ([]*domain.ListingRecord, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		ORDER BY listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// GetByListingType retrieves listings of one type, ordered by listing_id ASC.
func (s *ListingStore) GetByListingType(ctx context.Context, lt domain.ListingType) ([]*domain.ListingRecord, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM listings
		WHERE listing_type = $1
		ORDER BY listing_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(lt))
	if err != nil {
		return nil, fmt.Errorf("get listings by type: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// insertArgs flattens a record into the insert parameter list, in the
// same order as listingColumns.
func insertArgs(l *domain.ListingRecord) []any {
	var rentPeriod *string
	if l.RentPeriod != nil {
		v := string(*l.RentPeriod)
		rentPeriod = &v
	}

	return []any{
		l.ListingID,
		l.URL,
		l.Title,
		string(l.ListingType),
		string(l.Ownership),
		string(l.PropertyStatus),
		l.PropertyType,
		l.PriceIDR,
		l.PriceUSD,
		rentPeriod,
		l.Bedrooms,
		l.Bathrooms,
		l.BuildingSizeSqm,
		l.LandSizeSqm,
		l.LeaseDuration,
		l.LeaseExpiryYear,
		l.Description,
		l.Company,
		l.Region,
		l.Area,
		l.Availability,
		l.ListingDate,
		l.ScrapedAt,
	}
}

// scanListing scans a single row into a ListingRecord.
func scanListing(row pgx.Row) (*domain.ListingRecord, error) {
	var l domain.ListingRecord
	var listingType, ownership, propertyStatus string
	var rentPeriod *string

	err := row.Scan(
		&l.ListingID,
		&l.URL,
		&l.Title,
		&listingType,
		&ownership,
		&propertyStatus,
		&l.PropertyType,
		&l.PriceIDR,
		&l.PriceUSD,
		&rentPeriod,
		&l.Bedrooms,
		&l.Bathrooms,
		&l.BuildingSizeSqm,
		&l.LandSizeSqm,
		&l.LeaseDuration,
		&l.LeaseExpiryYear,
		&l.Description,
		&l.Company,
		&l.Region,
		&l.Area,
		&l.Availability,
		&l.ListingDate,
		&l.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}

	l.ListingType = domain.ListingType(listingType)
	l.Ownership = domain.Ownership(ownership)
	l.PropertyStatus = domain.PropertyStatus(propertyStatus)
	if rentPeriod != nil {
		rp := domain.RentPeriod(*rentPeriod)
		l.RentPeriod = &rp
	}
	return &l, nil
}

// scanListings scans multiple rows into a slice of ListingRecord.
func scanListings(rows pgx.Rows) ([]*domain.ListingRecord, error) {
	var listings []*domain.ListingRecord

	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listing rows: %w", err)
	}

	return listings, nil
}
