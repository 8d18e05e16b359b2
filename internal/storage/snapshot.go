package storage

import (
	"context"

	"tweet-price-lab/internal/domain"
)

// SnapshotReader clamps every candle read to timestamp <= AsOfMs.
// Candles appended by live ingestion after the as-of point stay invisible
// for the whole run, so every query of one run sees the same tail.
type SnapshotReader struct {
	reader CandleReader
	asOfMs int64
}

// NewSnapshotReader wraps reader with a fixed as-of timestamp.
func NewSnapshotReader(reader CandleReader, asOfMs int64) *SnapshotReader {
	return &SnapshotReader{reader: reader, asOfMs: asOfMs}
}

// AsOfMs returns the snapshot timestamp.
func (s *SnapshotReader) AsOfMs() int64 {
	return s.asOfMs
}

// GetLatestAtOrBefore retrieves the latest candle with timestamp <= min(ts, asOf).
func (s *SnapshotReader) GetLatestAtOrBefore(ctx context.Context, assetID string, res domain.Resolution, ts int64) (*domain.Candle, error) {
	if ts > s.asOfMs {
		ts = s.asOfMs
	}
	return s.reader.GetLatestAtOrBefore(ctx, assetID, res, ts)
}

// GetByTimeRange retrieves candles within [start, min(end, asOf)].
func (s *SnapshotReader) GetByTimeRange(ctx context.Context, assetID string, res domain.Resolution, start, end int64) ([]*domain.Candle, error) {
	if end > s.asOfMs {
		end = s.asOfMs
	}
	if start > end {
		return nil, nil
	}
	return s.reader.GetByTimeRange(ctx, assetID, res, start, end)
}

var _ CandleReader = (*SnapshotReader)(nil)
