package normalization

import (
	"tweet-price-lab/internal/domain"
)

const dayMs = int64(24 * 60 * 60 * 1000)

// DayStart truncates a Unix ms timestamp to UTC midnight.
func DayStart(ts int64) int64 {
	return floorTo(ts, dayMs)
}

// DailyCloses collapses candles into one close per UTC day.
// Candles must be pre-sorted by timestamp_ms.
//
// Aggregation for same UTC day:
//   - close = LAST(close) by timestamp order
func DailyCloses(candles []*domain.Candle) []domain.DailyPrice {
	if len(candles) == 0 {
		return nil
	}

	var result []domain.DailyPrice
	var current *domain.DailyPrice

	for _, c := range candles {
		day := DayStart(c.TimestampMs)
		if current == nil || current.DayMs != day {
			if current != nil {
				result = append(result, *current)
			}
			current = &domain.DailyPrice{DayMs: day, Close: c.Close}
		} else {
			current.Close = c.Close // LAST(close)
		}
	}

	if current != nil {
		result = append(result, *current)
	}

	return result
}
