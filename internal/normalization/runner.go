package normalization

import (
	"context"
	"fmt"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// DailySeries loads candles for the asset and collapses them to daily closes.
// Steps:
//  1. Try each configured resolution in order
//  2. Take the first with any candle in [start, end]
//  3. Collapse to LAST(close) per UTC day
func (r *Runner) DailySeries(ctx context.Context, assetID string, start, end int64) ([]domain.DailyPrice, error) {
	for _, res := range r.order {
		candles, err := r.candles.GetByTimeRange(ctx, assetID, res, start, end)
		if err != nil {
			return nil, fmt.Errorf("load %s candles: %w", res, err)
		}
		if len(candles) == 0 {
			continue
		}
		return DailyCloses(candles), nil
	}
	return nil, nil
}

// RollupAsset derives coarser candles from a finer series and stores them.
// Buckets that already exist in the store are left untouched.
func RollupAsset(ctx context.Context, store storage.CandleStore, assetID string, from, to domain.Resolution, start, end int64) (int, error) {
	src, err := store.GetByTimeRange(ctx, assetID, from, start, end)
	if err != nil {
		return 0, fmt.Errorf("load %s candles: %w", from, err)
	}
	SortCandles(src)

	derived, err := Rollup(src, to)
	if err != nil {
		return 0, err
	}
	if len(derived) == 0 {
		return 0, nil
	}

	existing, err := store.GetByTimeRange(ctx, assetID, to, derived[0].TimestampMs, derived[len(derived)-1].TimestampMs)
	if err != nil {
		return 0, fmt.Errorf("load %s candles: %w", to, err)
	}
	have := make(map[int64]struct{}, len(existing))
	for _, c := range existing {
		have[c.TimestampMs] = struct{}{}
	}

	missing := derived[:0]
	for _, c := range derived {
		if _, ok := have[c.TimestampMs]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}
	if err := store.InsertBulk(ctx, missing); err != nil {
		return 0, fmt.Errorf("insert %s candles: %w", to, err)
	}
	return len(missing), nil
}
