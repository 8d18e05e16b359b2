package memory

import (
	"context"
	"sync"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// ResultStore keeps the latest analysis per asset. Put replaces wholesale.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AssetAnalysis
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[string]*domain.AssetAnalysis),
	}
}

// Put stores the analysis as the latest for its asset.
func (s *ResultStore) Put(_ context.Context, a *domain.AssetAnalysis) error {
	if a == nil || a.AssetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[a.AssetID] = a
	return nil
}

// Get returns the latest analysis for an asset. Returns ErrNotFound if none.
func (s *ResultStore) Get(_ context.Context, assetID string) (*domain.AssetAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[assetID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

var (
	_ storage.ResultSink   = (*ResultStore)(nil)
	_ storage.ResultReader = (*ResultStore)(nil)
)
