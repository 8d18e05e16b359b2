package normalization

import (
	"context"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// NormalizationEngine defines the main normalization interface.
type NormalizationEngine interface {
	// DailySeries returns one close per UTC day for an asset within [start, end].
	DailySeries(ctx context.Context, assetID string, start, end int64) ([]domain.DailyPrice, error)
}

// Runner implements NormalizationEngine.
type Runner struct {
	candles storage.CandleReader
	order   []domain.Resolution
}

// NewRunner creates a new normalization runner. order lists the resolutions
// tried for the daily series, first non-empty wins.
func NewRunner(candles storage.CandleReader, order []domain.Resolution) *Runner {
	if len(order) == 0 {
		order = []domain.Resolution{domain.Resolution1d, domain.Resolution1h, domain.Resolution1m}
	}
	return &Runner{
		candles: candles,
		order:   order,
	}
}
