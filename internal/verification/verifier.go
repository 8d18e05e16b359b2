// Package verification re-runs an analysis and checks that it reproduces
// the published results.
package verification

import (
	"fmt"
	"math"

	"tweet-price-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // path, e.g. Events[2].PricePlus1h
	Expected any    // stored value
	Actual   any    // replayed value
}

// VerificationResult contains the result of verifying a single asset.
type VerificationResult struct {
	AssetID     string
	Match       bool
	Divergences []FieldDivergence
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalAssets     int
	MatchedAssets   int
	DivergentAssets int
	Results         []VerificationResult // sorted by asset id
}

// divergences collects mismatches under a field prefix.
type divergences struct {
	prefix string
	list   []FieldDivergence
}

func (d *divergences) add(field string, expected, actual any) {
	d.list = append(d.list, FieldDivergence{Field: d.prefix + field, Expected: expected, Actual: actual})
}

func (d *divergences) equal(field string, expected, actual any) {
	if expected != actual {
		d.add(field, expected, actual)
	}
}

func (d *divergences) float(field string, expected, actual float64) {
	if !floatEquals(expected, actual) {
		d.add(field, expected, actual)
	}
}

func (d *divergences) floatPtr(field string, expected, actual *float64) {
	if !floatPtrEquals(expected, actual) {
		d.add(field, deref(expected), deref(actual))
	}
}

func (d *divergences) under(prefix string) *divergences {
	return &divergences{prefix: d.prefix + prefix}
}

func (d *divergences) merge(other *divergences) {
	d.list = append(d.list, other.list...)
}

// CompareAnalyses compares two analyses of one asset and returns divergences.
// RunID is ignored; every other computed field takes part.
func CompareAnalyses(stored, replayed *domain.AssetAnalysis) []FieldDivergence {
	d := &divergences{}
	d.equal("AssetID", stored.AssetID, replayed.AssetID)
	d.equal("Author", stored.Author, replayed.Author)
	d.equal("AsOfMs", stored.AsOfMs, replayed.AsOfMs)
	d.equal("PostCount", stored.PostCount, replayed.PostCount)

	if len(stored.Events) != len(replayed.Events) {
		d.add("len(Events)", len(stored.Events), len(replayed.Events))
	} else {
		for i := range stored.Events {
			sub := d.under(fmt.Sprintf("Events[%d].", i))
			compareEvent(sub, stored.Events[i], replayed.Events[i])
			d.merge(sub)
		}
	}

	if len(stored.QuietPeriods) != len(replayed.QuietPeriods) {
		d.add("len(QuietPeriods)", len(stored.QuietPeriods), len(replayed.QuietPeriods))
	} else {
		for i := range stored.QuietPeriods {
			sub := d.under(fmt.Sprintf("QuietPeriods[%d].", i))
			compareQuiet(sub, stored.QuietPeriods[i], replayed.QuietPeriods[i])
			d.merge(sub)
		}
	}

	if len(stored.DailyPrices) != len(replayed.DailyPrices) {
		d.add("len(DailyPrices)", len(stored.DailyPrices), len(replayed.DailyPrices))
	} else {
		for i := range stored.DailyPrices {
			s, r := stored.DailyPrices[i], replayed.DailyPrices[i]
			d.equal(fmt.Sprintf("DailyPrices[%d].DayMs", i), s.DayMs, r.DayMs)
			d.float(fmt.Sprintf("DailyPrices[%d].Close", i), s.Close, r.Close)
		}
	}

	daily := d.under("Daily.")
	compareDaily(daily, stored.Daily, replayed.Daily)
	d.merge(daily)

	corr := d.under("Correlation.")
	compareCorrelation(corr, stored.Correlation, replayed.Correlation)
	d.merge(corr)
	return d.list
}

func compareEvent(d *divergences, s, r *domain.AlignedEvent) {
	d.equal("EventID", s.EventID, r.EventID)
	d.equal("EventTimestamp", s.EventTimestamp, r.EventTimestamp)
	d.equal("ClusterSize", s.ClusterSize, r.ClusterSize)
	d.equal("FormedViaThread", s.FormedViaThread, r.FormedViaThread)
	d.floatPtr("PriceAtEvent", s.PriceAtEvent, r.PriceAtEvent)
	d.floatPtr("PricePlus1h", s.PricePlus1h, r.PricePlus1h)
	d.floatPtr("PricePlus24h", s.PricePlus24h, r.PricePlus24h)
	d.floatPtr("Change1hPct", s.Change1hPct, r.Change1hPct)
	d.floatPtr("Change24hPct", s.Change24hPct, r.Change24hPct)
	d.equal("StaleAtEvent", s.StaleAtEvent, r.StaleAtEvent)
	d.equal("Overridden", s.Overridden, r.Overridden)
	d.equal("Annotation", s.Annotation, r.Annotation)
}

func compareQuiet(d *divergences, s, r *domain.QuietPeriod) {
	d.equal("StartMs", s.StartMs, r.StartMs)
	d.equal("EndMs", s.EndMs, r.EndMs)
	d.equal("IsOngoing", s.IsOngoing, r.IsOngoing)
	d.floatPtr("PriceBefore", s.PriceBefore, r.PriceBefore)
	d.floatPtr("PriceAfter", s.PriceAfter, r.PriceAfter)
	d.floatPtr("PriceMinDuring", s.PriceMinDuring, r.PriceMinDuring)
	d.floatPtr("PriceMaxDuring", s.PriceMaxDuring, r.PriceMaxDuring)
	d.floatPtr("PriceAtGapEnd", s.PriceAtGapEnd, r.PriceAtGapEnd)
	d.floatPtr("PctChangeDuring", s.PctChangeDuring, r.PctChangeDuring)
	d.floatPtr("PctChangeTotal", s.PctChangeTotal, r.PctChangeTotal)
}

func compareDaily(d *divergences, s, r *domain.DailyComparisonResult) {
	if s == nil || r == nil {
		if (s == nil) != (r == nil) {
			d.add("present", s != nil, r != nil)
		}
		return
	}
	d.equal("Status", s.Status, r.Status)
	d.equal("ConfidenceLabel", s.ConfidenceLabel, r.ConfidenceLabel)
	d.equal("EventDays.Count", s.EventDays.Count, r.EventDays.Count)
	d.equal("NonEventDays.Count", s.NonEventDays.Count, r.NonEventDays.Count)
	d.floatPtr("MeanDifference", s.MeanDifference, r.MeanDifference)
	if s.Test != nil && r.Test != nil {
		d.float("Test.PValue", s.Test.PValue, r.Test.PValue)
	} else if (s.Test == nil) != (r.Test == nil) {
		d.add("Test.present", s.Test != nil, r.Test != nil)
	}
}

func compareCorrelation(d *divergences, s, r *domain.CorrelationResult) {
	if s == nil || r == nil {
		if (s == nil) != (r == nil) {
			d.add("present", s != nil, r != nil)
		}
		return
	}
	d.equal("Status", s.Status, r.Status)
	d.equal("Pairs", s.Pairs, r.Pairs)
	d.floatPtr("Pearson", s.Pearson, r.Pearson)
	d.floatPtr("PValue", s.PValue, r.PValue)
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// floatPtrEquals compares two *float64 values within FloatTolerance.
// Returns true if both are nil, or both are non-nil and equal.
func floatPtrEquals(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEquals(*a, *b)
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
