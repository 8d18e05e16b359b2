package domain

import "time"

// QuietPeriod is a gap between consecutive events at least as long as the configured minimum.
// Nil price fields mean no candle was available; percentages derived from them are nil too.
type QuietPeriod struct {
	AssetID         string   `json:"asset_id"`
	StartMs         int64    `json:"start_ts_ms"`
	EndMs           int64    `json:"end_ts_ms"`
	GapDurationMs   int64    `json:"gap_duration_ms"`
	PriceBefore     *float64 `json:"price_before"`
	PriceAfter      *float64 `json:"price_after"` // nil while ongoing
	PriceMinDuring  *float64 `json:"price_min_during"`
	PriceMaxDuring  *float64 `json:"price_max_during"`
	PriceAtGapEnd   *float64 `json:"price_at_gap_end"`
	PctChangeDuring *float64 `json:"pct_change_during"`
	PctChangeTotal  *float64 `json:"pct_change_total"`
	IsOngoing       bool     `json:"is_ongoing"`
}

// GapDuration returns the gap length as a time.Duration.
func (q *QuietPeriod) GapDuration() time.Duration {
	return time.Duration(q.GapDurationMs) * time.Millisecond
}

// GapDays returns the gap length in fractional days.
func (q *QuietPeriod) GapDays() float64 {
	return float64(q.GapDurationMs) / float64(24*time.Hour/time.Millisecond)
}
