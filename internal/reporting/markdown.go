package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Post Impact Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s | As of: %s\n\n", r.RunID, formatTime(r.AsOfMs)))
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Registered Assets | %d |\n", r.Summary.TotalAssets))
	sb.WriteString(fmt.Sprintf("| Analysed Assets | %d |\n", r.Summary.AnalysedAssets))
	sb.WriteString(fmt.Sprintf("| Posts | %d |\n", r.Summary.TotalPosts))
	sb.WriteString(fmt.Sprintf("| Events | %d |\n", r.Summary.TotalEvents))
	sb.WriteString(fmt.Sprintf("| Thread Events | %d |\n", r.Summary.ThreadEvents))
	sb.WriteString(fmt.Sprintf("| Quiet Periods | %d |\n", r.Summary.TotalQuietPeriods))
	sb.WriteString(fmt.Sprintf("| Ongoing Quiet Periods | %d |\n", r.Summary.OngoingQuiet))
	sb.WriteString(fmt.Sprintf("| Significant Daily Comparisons | %d |\n", r.Summary.SignificantDaily))
	sb.WriteString(fmt.Sprintf("| Significant Correlations | %d |\n", r.Summary.SignificantCorr))
	sb.WriteString("\n")

	renderDataQuality(&sb, r.DataQuality)

	if len(r.Missing) > 0 {
		sb.WriteString("## Assets Without Analysis\n\n")
		for _, id := range r.Missing {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}

	for _, a := range r.Assets {
		renderAsset(&sb, a)
	}

	return sb.String()
}

func renderDataQuality(sb *strings.Builder, dq DataQualitySection) {
	sb.WriteString("## Data Quality\n\n")
	if len(dq.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range dq.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if dq.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Treat the statistics below with caution.\n\n")
		}
	} else if len(dq.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors are shown even without sufficiency checks
	if len(dq.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range dq.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}
}

func renderAsset(sb *strings.Builder, a AssetSection) {
	title := a.AssetID
	if a.Symbol != "" {
		title = fmt.Sprintf("%s (%s)", a.AssetID, a.Symbol)
	}
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Author: @%s | Posts: %d | Events: %d\n\n", a.Author, a.PostCount, len(a.Events)))

	// Statistics
	sb.WriteString("### Event Days vs Non-Event Days\n\n")
	d := a.Daily
	sb.WriteString("| Status | Label | Event Days | Non-Event Days | Event Mean % | Non-Event Mean % | Difference % | t | p |\n")
	sb.WriteString("|--------|-------|------------|----------------|--------------|------------------|--------------|---|---|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s | %s | %s | %s | %s |\n\n",
		d.Status, d.Label, d.EventDays, d.NonEventDays,
		formatPct(d.EventMean), formatPct(d.NonEventMean), formatPct(d.MeanDifference),
		formatStat(d.TStatistic), formatStat(d.PValue)))

	sb.WriteString("### Rolling Frequency vs Price\n\n")
	c := a.Correlation
	sb.WriteString("| Status | Label | Window (days) | Pairs | Pearson r | p |\n")
	sb.WriteString("|--------|-------|---------------|-------|-----------|---|\n")
	sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %s | %s |\n\n",
		c.Status, c.Label, c.WindowDays, c.Pairs, formatStat(c.Pearson), formatStat(c.PValue)))

	sb.WriteString("### Impact\n\n")
	i := a.Impact
	sb.WriteString("| Horizon | Events | Mean % | Median % | Win Rate % |\n")
	sb.WriteString("|---------|--------|--------|----------|------------|\n")
	sb.WriteString(fmt.Sprintf("| 1h | %d | %s | %s | %s |\n",
		i.With1h, formatPct(i.MeanChange1h), formatPct(i.MedianChange1h), formatRate(i.WinRate1h)))
	sb.WriteString(fmt.Sprintf("| 24h | %d | %s | %s | %s |\n\n",
		i.With24h, formatPct(i.MeanChange24h), formatPct(i.MedianChange24h), formatRate(i.WinRate24h)))

	// Events
	sb.WriteString("### Events\n\n")
	if len(a.Events) > 0 {
		sb.WriteString("| Time | Event | Size | Thread | Price | +1h % | +24h % | Note |\n")
		sb.WriteString("|------|-------|------|--------|-------|-------|--------|------|\n")
		for _, ev := range a.Events {
			note := ev.Annotation
			if ev.StaleAtEvent {
				note = strings.TrimSpace(note + " stale")
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %s | %s |\n",
				formatTime(ev.TimestampMs), shortID(ev.EventID), ev.ClusterSize, yesNo(ev.FormedViaThread),
				formatPrice(ev.PriceAtEvent), formatPct(ev.Change1hPct), formatPct(ev.Change24hPct), note))
		}
	} else {
		sb.WriteString("No events.\n")
	}
	sb.WriteString("\n")

	// Quiet periods
	sb.WriteString("### Quiet Periods\n\n")
	if len(a.QuietPeriods) > 0 {
		sb.WriteString("| Start | End | Days | Before | Min | Max | At End | During % | Total % | Ongoing |\n")
		sb.WriteString("|-------|-----|------|--------|-----|-----|--------|----------|---------|---------|\n")
		for _, q := range a.QuietPeriods {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				formatTime(q.StartMs), formatTime(q.EndMs), formatDays(q.GapDays),
				formatPrice(q.PriceBefore), formatPrice(q.PriceMinDuring), formatPrice(q.PriceMaxDuring),
				formatPrice(q.PriceAtGapEnd), formatPct(q.PctChangeDuring), formatPct(q.PctChangeTotal),
				yesNo(q.IsOngoing)))
		}
	} else {
		sb.WriteString("No quiet periods.\n")
	}
	sb.WriteString("\n")
}

// shortID keeps tables readable; CSV output carries the full id.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
