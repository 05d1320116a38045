package memory

import (
	"context"
	"sort"
	"sync"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

// ListingStore is an in-memory implementation of storage.ListingStore.
type ListingStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ListingRecord // keyed by listing_id
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{
		data: make(map[string]*domain.ListingRecord),
	}
}

// Compile-time interface check.
var _ storage.ListingStore = (*ListingStore)(nil)

// Insert adds a new listing. Returns ErrDuplicateKey if listing_id exists.
func (s *ListingStore) Insert(_ context.Context, l *domain.ListingRecord) error {
	if l == nil || l.ListingID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.ListingID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	listingCopy := *l
	s.data[l.ListingID] = &listingCopy
	return nil
}

// InsertBulk adds multiple listings. Fails entire batch on any duplicate.
func (s *ListingStore) InsertBulk(_ context.Context, listings []*domain.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		if l == nil || l.ListingID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[l.ListingID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[l.ListingID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[l.ListingID] = struct{}{}
	}

	for _, l := range listings {
		listingCopy := *l
		s.data[l.ListingID] = &listingCopy
	}
	return nil
}

// ReplaceAll atomically swaps the stored table for a fresh refresh batch.
func (s *ListingStore) ReplaceAll(_ context.Context, listings []*domain.ListingRecord) error {
	fresh := make(map[string]*domain.ListingRecord, len(listings))
	for _, l := range listings {
		if l == nil || l.ListingID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := fresh[l.ListingID]; dup {
			return storage.ErrDuplicateKey
		}
		listingCopy := *l
		fresh[l.ListingID] = &listingCopy
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = fresh
	return nil
}

// GetByID retrieves a listing by its ID. Returns ErrNotFound if not exists.
func (s *ListingStore) GetByID(_ context.Context, listingID string) (*domain.ListingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[listingID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	listingCopy := *l
	return &listingCopy, nil
}

// GetAll retrieves every listing, ordered by listing_id ASC.
func (s *ListingStore) GetAll(_ context.Context) ([]*domain.ListingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ListingRecord, 0, len(s.data))
	for _, l := range s.data {
		listingCopy := *l
		result = append(result, &listingCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ListingID < result[j].ListingID
	})

	return result, nil
}

// GetByListingType retrieves listings of one type, ordered by listing_id ASC.
func (s *ListingStore) GetByListingType(_ context.Context, lt domain.ListingType) ([]*domain.ListingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ListingRecord
	for _, l := range s.data {
		if l.ListingType == lt {
			listingCopy := *l
			result = append(result, &listingCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ListingID < result[j].ListingID
	})

	return result, nil
}
