package storage

import (
	"context"

	"listing-lab/internal/domain"
)

// ListingStore provides access to normalized listing storage.
type ListingStore interface {
	// Insert adds a new listing. Returns ErrDuplicateKey if listing_id exists.
	Insert(ctx context.Context, l *domain.ListingRecord) error

	// InsertBulk adds multiple listings. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, listings []*domain.ListingRecord) error

	// ReplaceAll atomically swaps the stored table for a fresh refresh batch.
	ReplaceAll(ctx context.Context, listings []*domain.ListingRecord) error

	// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, listingID string) (*domain.ListingRecord, error)

	// GetAll retrieves every listing, ordered by listing_id ASC.
	GetAll(ctx context.Context) ([]*domain.ListingRecord, error)

	// GetByListingType retrieves listings of one type, ordered by listing_id ASC.
	GetByListingType(ctx context.Context, lt domain.ListingType) ([]*domain.ListingRecord, error)
}

// SnapshotStore persists enriched tables keyed by their snapshot
// fingerprint. Snapshots are append-only: a fingerprint is written once.
type SnapshotStore interface {
	// InsertBulk stores one enriched table under snapshotID. Returns
	// ErrDuplicateKey if the snapshot already exists.
	InsertBulk(ctx context.Context, snapshotID string, records []*domain.EnrichedRecord) error

	// GetBySnapshot retrieves the enriched table for snapshotID, in stored
	// order. Returns ErrNotFound if the snapshot does not exist.
	GetBySnapshot(ctx context.Context, snapshotID string) ([]*domain.EnrichedRecord, error)

	// ListSnapshots returns all stored snapshot IDs, sorted ASC.
	ListSnapshots(ctx context.Context) ([]string, error)
}
