package pipeline

import (
	"fmt"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/reporting"
	"tweet-price-lab/internal/verification"
)

// MinPriceCoverage is the share of events that must have a price at the event.
const MinPriceCoverage = 0.9

// SufficiencyChecker judges whether a run's output is complete enough to read.
type SufficiencyChecker struct {
	minPriceCoverage float64
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker() *SufficiencyChecker {
	return &SufficiencyChecker{minPriceCoverage: MinPriceCoverage}
}

// Check evaluates the run:
//  1. At least one asset analysed
//  2. No failed assets
//  3. Price at event found for >= 90% of events
//  4. Daily comparison computed for every asset
//  5. Rolling correlation computed for every asset
//  6. Every override matched an event
//  7. Replay reproduces every published analysis (only when replay is non-nil)
func (c *SufficiencyChecker) Check(result *orchestrator.RunResult, replay *verification.VerificationReport) reporting.DataQualitySection {
	dq := reporting.DataQualitySection{
		SufficiencyChecks: make([]reporting.SufficiencyCheckRow, 0, 7),
		IntegrityErrors:   result.Errors(),
	}

	analysed := len(result.Analyses)
	dq.SufficiencyChecks = append(dq.SufficiencyChecks,
		reporting.SufficiencyCheckRow{
			Name:      "Analysed assets",
			Threshold: ">= 1",
			Actual:    fmt.Sprintf("%d", analysed),
			Pass:      analysed >= 1,
		},
		reporting.SufficiencyCheckRow{
			Name:      "Failed assets",
			Threshold: "== 0",
			Actual:    fmt.Sprintf("%d", len(result.Failures)),
			Pass:      len(result.Failures) == 0,
		},
		c.checkPriceCoverage(result.Analyses),
		checkStatus("Daily comparisons computed", result.Analyses, func(a *domain.AssetAnalysis) bool {
			return a.Daily != nil && a.Daily.Status == domain.StatusOK
		}),
		checkStatus("Correlations computed", result.Analyses, func(a *domain.AssetAnalysis) bool {
			return a.Correlation != nil && a.Correlation.Status == domain.StatusOK
		}),
		reporting.SufficiencyCheckRow{
			Name:      "Unmatched overrides",
			Threshold: "== 0",
			Actual:    fmt.Sprintf("%d", len(result.UnmatchedOverrides)),
			Pass:      len(result.UnmatchedOverrides) == 0,
		},
	)
	if replay != nil {
		dq.SufficiencyChecks = append(dq.SufficiencyChecks, reporting.SufficiencyCheckRow{
			Name:      "Replay matches",
			Threshold: "all assets",
			Actual:    fmt.Sprintf("%d/%d", replay.MatchedAssets, replay.TotalAssets),
			Pass:      replay.DivergentAssets == 0,
		})
		for _, r := range replay.Results {
			for _, d := range r.Divergences {
				dq.IntegrityErrors = append(dq.IntegrityErrors,
					fmt.Sprintf("replay %s: %s stored=%v replayed=%v", r.AssetID, d.Field, d.Expected, d.Actual))
			}
		}
	}

	dq.AllChecksPassed = len(dq.IntegrityErrors) == 0
	for _, check := range dq.SufficiencyChecks {
		if !check.Pass {
			dq.AllChecksPassed = false
		}
	}
	return dq
}

// checkPriceCoverage: events with a price at the event / all events.
func (c *SufficiencyChecker) checkPriceCoverage(analyses []*domain.AssetAnalysis) reporting.SufficiencyCheckRow {
	var total, priced int
	for _, a := range analyses {
		for _, ev := range a.Events {
			total++
			if ev.PriceAtEvent != nil {
				priced++
			}
		}
	}

	row := reporting.SufficiencyCheckRow{
		Name:      "Event price coverage",
		Threshold: fmt.Sprintf(">= %.0f%%", c.minPriceCoverage*100),
	}
	if total == 0 {
		row.Actual = "no events"
		return row
	}
	coverage := float64(priced) / float64(total)
	row.Actual = fmt.Sprintf("%.1f%% (%d/%d)", coverage*100, priced, total)
	row.Pass = coverage >= c.minPriceCoverage
	return row
}

func checkStatus(name string, analyses []*domain.AssetAnalysis, ok func(*domain.AssetAnalysis) bool) reporting.SufficiencyCheckRow {
	var n int
	for _, a := range analyses {
		if ok(a) {
			n++
		}
	}
	return reporting.SufficiencyCheckRow{
		Name:      name,
		Threshold: "all assets",
		Actual:    fmt.Sprintf("%d/%d", n, len(analyses)),
		Pass:      len(analyses) > 0 && n == len(analyses),
	}
}
