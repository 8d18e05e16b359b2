package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Fixed decimal places per quantity.
const (
	priceDecimals = 8
	pctDecimals   = 2
	statDecimals  = 4
)

const notAvailable = "n/a"

// formatFixed rounds half away from zero. Absent or non-finite values render as n/a.
func formatFixed(v *float64, places int32) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return notAvailable
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}

func formatPrice(v *float64) string { return formatFixed(v, priceDecimals) }

func formatPct(v *float64) string { return formatFixed(v, pctDecimals) }

func formatStat(v *float64) string { return formatFixed(v, statDecimals) }

// formatRate renders a 0..1 share as a percentage.
func formatRate(v *float64) string {
	if v == nil {
		return notAvailable
	}
	pct := *v * 100
	return formatFixed(&pct, pctDecimals)
}

func formatDays(days float64) string {
	return formatFixed(&days, pctDecimals)
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
