package normalization

import (
	"sort"

	"tweet-price-lab/internal/domain"
)

// SortCandles orders candles by (asset_id ASC, resolution ASC, timestamp_ms ASC).
func SortCandles(candles []*domain.Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return compareCandles(candles[i], candles[j]) < 0
	})
}

// compareCandles returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareCandles(a, b *domain.Candle) int {
	if a.AssetID != b.AssetID {
		if a.AssetID < b.AssetID {
			return -1
		}
		return 1
	}
	if a.Resolution != b.Resolution {
		if a.Resolution.Duration() < b.Resolution.Duration() {
			return -1
		}
		return 1
	}
	if a.TimestampMs != b.TimestampMs {
		if a.TimestampMs < b.TimestampMs {
			return -1
		}
		return 1
	}
	return 0
}
