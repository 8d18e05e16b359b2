package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

var eventsHeader = []string{
	"asset_id", "event_id", "anchor_post_id", "timestamp_ms", "cluster_size", "formed_via_thread",
	"price_at_event", "price_plus_1h", "price_plus_24h", "change_1h_pct", "change_24h_pct",
	"stale_at_event", "overridden", "annotation",
}

var quietHeader = []string{
	"asset_id", "start_ts_ms", "end_ts_ms", "gap_days",
	"price_before", "price_after", "price_min_during", "price_max_during", "price_at_gap_end",
	"pct_change_during", "pct_change_total", "is_ongoing",
}

// RenderEventsCSV renders every asset's aligned events as CSV. Absent values are empty cells.
func RenderEventsCSV(r *Report) (string, error) {
	rows := [][]string{eventsHeader}
	for _, a := range r.Assets {
		for _, ev := range a.Events {
			rows = append(rows, []string{
				ev.AssetID,
				ev.EventID,
				ev.AnchorPostID,
				strconv.FormatInt(ev.TimestampMs, 10),
				strconv.Itoa(ev.ClusterSize),
				strconv.FormatBool(ev.FormedViaThread),
				csvValue(formatPrice(ev.PriceAtEvent)),
				csvValue(formatPrice(ev.PricePlus1h)),
				csvValue(formatPrice(ev.PricePlus24h)),
				csvValue(formatStat(ev.Change1hPct)),
				csvValue(formatStat(ev.Change24hPct)),
				strconv.FormatBool(ev.StaleAtEvent),
				strconv.FormatBool(ev.Overridden),
				ev.Annotation,
			})
		}
	}
	return writeCSV(rows)
}

// RenderQuietPeriodsCSV renders every asset's quiet periods as CSV.
func RenderQuietPeriodsCSV(r *Report) (string, error) {
	rows := [][]string{quietHeader}
	for _, a := range r.Assets {
		for _, q := range a.QuietPeriods {
			days := q.GapDays
			rows = append(rows, []string{
				q.AssetID,
				strconv.FormatInt(q.StartMs, 10),
				strconv.FormatInt(q.EndMs, 10),
				formatStat(&days),
				csvValue(formatPrice(q.PriceBefore)),
				csvValue(formatPrice(q.PriceAfter)),
				csvValue(formatPrice(q.PriceMinDuring)),
				csvValue(formatPrice(q.PriceMaxDuring)),
				csvValue(formatPrice(q.PriceAtGapEnd)),
				csvValue(formatStat(q.PctChangeDuring)),
				csvValue(formatStat(q.PctChangeTotal)),
				strconv.FormatBool(q.IsOngoing),
			})
		}
	}
	return writeCSV(rows)
}

func csvValue(s string) string {
	if s == notAvailable {
		return ""
	}
	return s
}

func writeCSV(rows [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return sb.String(), nil
}
