package domain

import (
	"fmt"
	"time"
)

// Resolution is a candle granularity.
type Resolution string

// Supported candle resolutions, finest first.
const (
	Resolution1m Resolution = "1m"
	Resolution1h Resolution = "1h"
	Resolution1d Resolution = "1d"
)

// AllResolutions lists supported resolutions from finest to coarsest.
var AllResolutions = []Resolution{Resolution1m, Resolution1h, Resolution1d}

// Duration returns the bucket width of the resolution, or 0 if unknown.
func (r Resolution) Duration() time.Duration {
	switch r {
	case Resolution1m:
		return time.Minute
	case Resolution1h:
		return time.Hour
	case Resolution1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ParseResolution validates a resolution string.
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(s)
	if r.Duration() == 0 {
		return "", fmt.Errorf("unknown resolution %q", s)
	}
	return r, nil
}

// Candle is one OHLCV bar. Timestamps are aligned to the resolution boundary.
// Corresponds to candles table in ClickHouse.
type Candle struct {
	AssetID     string     // asset identifier
	Resolution  Resolution // 1m | 1h | 1d
	TimestampMs int64      // bucket open time, Unix ms
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// PriceLookup is the outcome of a point-in-time price query.
// A nil Price means no candle satisfied the staleness policy.
type PriceLookup struct {
	Price             *float64    `json:"price"`
	Resolution        *Resolution `json:"resolution_used"`
	CandleTimestampMs *int64      `json:"candle_timestamp_ms"`
	IsStale           bool        `json:"is_stale"` // candle accepted but target lies beyond its bucket
}

// Available reports whether a price was found.
func (l PriceLookup) Available() bool {
	return l.Price != nil
}

// DailyPrice is a single closing price per UTC calendar day.
type DailyPrice struct {
	DayMs int64   `json:"day_ms"` // UTC midnight, Unix ms
	Close float64 `json:"close"`
}
