package memory

import (
	"context"
	"sort"
	"sync"

	"listing-lab/internal/domain"
	"listing-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.EnrichedRecord // keyed by snapshot fingerprint
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]*domain.EnrichedRecord),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk stores one enriched table under snapshotID. Returns
// ErrDuplicateKey if the snapshot already exists.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshotID string, records []*domain.EnrichedRecord) error {
	if snapshotID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snapshotID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]*domain.EnrichedRecord, len(records))
	for i, r := range records {
		if r == nil {
			return storage.ErrInvalidInput
		}
		recordCopy := *r
		recordCopy.OutlierFlags = copyFlags(r.OutlierFlags)
		stored[i] = &recordCopy
	}
	s.data[snapshotID] = stored
	return nil
}

// GetBySnapshot retrieves the enriched table for snapshotID, in stored order.
func (s *SnapshotStore) GetBySnapshot(_ context.Context, snapshotID string) ([]*domain.EnrichedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.data[snapshotID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.EnrichedRecord, len(stored))
	for i, r := range stored {
		recordCopy := *r
		recordCopy.OutlierFlags = copyFlags(r.OutlierFlags)
		result[i] = &recordCopy
	}
	return result, nil
}

// ListSnapshots returns all stored snapshot IDs, sorted ASC.
func (s *SnapshotStore) ListSnapshots(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyFlags(flags map[string]bool) map[string]bool {
	if flags == nil {
		return nil
	}
	out := make(map[string]bool, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}
