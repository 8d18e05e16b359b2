package memory

import (
	"context"
	"sort"
	"sync"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// seriesKey identifies one (asset, resolution) candle series.
type seriesKey struct {
	assetID    string
	resolution domain.Resolution
}

// CandleStore is an in-memory implementation of storage.CandleStore.
// Each series is kept sorted by timestamp so point lookups are binary searches.
type CandleStore struct {
	mu     sync.RWMutex
	series map[seriesKey][]*domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		series: make(map[seriesKey][]*domain.Candle),
	}
}

// InsertBulk adds multiple candles. Fails entire batch on duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, candles []*domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type candleKey struct {
		series seriesKey
		ts     int64
	}
	batchKeys := make(map[candleKey]struct{}, len(candles))

	// First pass: validate and check duplicates (existing + intra-batch)
	for _, c := range candles {
		if c == nil || c.AssetID == "" || c.Resolution.Duration() == 0 {
			return storage.ErrInvalidInput
		}
		k := candleKey{seriesKey{c.AssetID, c.Resolution}, c.TimestampMs}
		if _, found := s.find(k.series, c.TimestampMs); found {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all, then re-sort touched series
	touched := make(map[seriesKey]struct{})
	for _, c := range candles {
		k := seriesKey{c.AssetID, c.Resolution}
		candleCopy := *c
		s.series[k] = append(s.series[k], &candleCopy)
		touched[k] = struct{}{}
	}
	for k := range touched {
		series := s.series[k]
		sort.Slice(series, func(i, j int) bool {
			return series[i].TimestampMs < series[j].TimestampMs
		})
	}

	return nil
}

// GetLatestAtOrBefore retrieves the latest candle with timestamp <= ts.
func (s *CandleStore) GetLatestAtOrBefore(_ context.Context, assetID string, res domain.Resolution, ts int64) (*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[seriesKey{assetID, res}]
	// first index with timestamp > ts
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].TimestampMs > ts
	})
	if idx == 0 {
		return nil, storage.ErrNotFound
	}

	candleCopy := *series[idx-1]
	return &candleCopy, nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
func (s *CandleStore) GetByTimeRange(_ context.Context, assetID string, res domain.Resolution, start, end int64) ([]*domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[seriesKey{assetID, res}]
	lo := sort.Search(len(series), func(i int) bool {
		return series[i].TimestampMs >= start
	})

	var result []*domain.Candle
	for i := lo; i < len(series) && series[i].TimestampMs <= end; i++ {
		candleCopy := *series[i]
		result = append(result, &candleCopy)
	}

	return result, nil
}

// find returns the index of the candle at ts within a series. Caller holds the lock.
func (s *CandleStore) find(k seriesKey, ts int64) (int, bool) {
	series := s.series[k]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].TimestampMs >= ts
	})
	return idx, idx < len(series) && series[idx].TimestampMs == ts
}

var _ storage.CandleStore = (*CandleStore)(nil)
