package normalization

import (
	"fmt"

	"tweet-price-lab/internal/domain"
)

// Rollup aggregates sorted candles of one finer resolution into buckets of target.
// Candles must share asset and resolution and be pre-sorted by timestamp_ms.
//
// Aggregation per target bucket:
//   - open = FIRST(open)
//   - high = MAX(high)
//   - low = MIN(low)
//   - close = LAST(close)
//   - volume = SUM(volume)
func Rollup(candles []*domain.Candle, target domain.Resolution) ([]*domain.Candle, error) {
	width := target.Duration().Milliseconds()
	if width == 0 {
		return nil, fmt.Errorf("rollup: unknown resolution %q", target)
	}
	if len(candles) == 0 {
		return nil, nil
	}
	if candles[0].Resolution.Duration() >= target.Duration() {
		return nil, fmt.Errorf("rollup: %s is not finer than %s", candles[0].Resolution, target)
	}

	var result []*domain.Candle
	var current *domain.Candle

	for _, c := range candles {
		bucket := floorTo(c.TimestampMs, width)
		if current == nil || current.AssetID != c.AssetID || current.TimestampMs != bucket {
			if current != nil {
				result = append(result, current)
			}
			current = &domain.Candle{
				AssetID:     c.AssetID,
				Resolution:  target,
				TimestampMs: bucket,
				Open:        c.Open,
				High:        c.High,
				Low:         c.Low,
				Close:       c.Close,
				Volume:      c.Volume,
			}
		} else {
			if c.High > current.High {
				current.High = c.High
			}
			if c.Low < current.Low {
				current.Low = c.Low
			}
			current.Close = c.Close    // LAST(close)
			current.Volume += c.Volume // SUM(volume)
		}
	}

	if current != nil {
		result = append(result, current)
	}

	return result, nil
}

func floorTo(ts, width int64) int64 {
	if ts < 0 && ts%width != 0 {
		return ts/width*width - width
	}
	return ts / width * width
}
