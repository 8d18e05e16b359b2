package memory

import (
	"context"
	"sort"
	"sync"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data: make(map[string]*domain.Asset),
	}
}

// Insert adds a new asset. Returns ErrDuplicateKey if id exists.
func (s *AssetStore) Insert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	assetCopy := *a
	s.data[a.ID] = &assetCopy
	return nil
}

// GetByID retrieves an asset by its ID.
func (s *AssetStore) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	assetCopy := *a
	return &assetCopy, nil
}

// GetAll retrieves all assets, ordered by id ASC.
func (s *AssetStore) GetAll(_ context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Asset, 0, len(s.data))
	for _, a := range s.data {
		assetCopy := *a
		result = append(result, &assetCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ storage.AssetStore = (*AssetStore)(nil)
