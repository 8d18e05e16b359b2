package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/normalization"
)

// CompareDays splits daily returns into event days and non-event days and
// runs a Welch two-sample t-test between them.
//
// A day's return is relative to the previous available close; missing days
// are skipped, so consecutive available prices count as adjacent. The first
// priced day has no return. Days whose previous close is zero are dropped.
func CompareDays(prices []domain.DailyPrice, eventTimestamps []int64, cfg Config) *domain.DailyComparisonResult {
	eventDays := make(map[int64]struct{}, len(eventTimestamps))
	for _, ts := range eventTimestamps {
		eventDays[normalization.DayStart(ts)] = struct{}{}
	}

	sorted := sortedPrices(prices)
	var withEvents, without []float64
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close
		if prev == 0 {
			continue
		}
		r := (sorted[i].Close - prev) / prev * 100
		if _, ok := eventDays[sorted[i].DayMs]; ok {
			withEvents = append(withEvents, r)
		} else {
			without = append(without, r)
		}
	}

	result := &domain.DailyComparisonResult{
		EventDays:    describe(withEvents),
		NonEventDays: describe(without),
	}
	if result.EventDays.Mean != nil && result.NonEventDays.Mean != nil {
		diff := *result.EventDays.Mean - *result.NonEventDays.Mean
		result.MeanDifference = &diff
	}

	if len(withEvents) < cfg.MinGroupSize || len(without) < cfg.MinGroupSize {
		result.Status = domain.StatusInsufficientData
		result.ConfidenceLabel = domain.ConfidenceInsufficientData
		return result
	}

	test, ok := welch(withEvents, without)
	if !ok {
		result.Status = domain.StatusNoVariance
		result.ConfidenceLabel = domain.ConfidenceInsufficientData
		return result
	}

	result.Test = test
	result.Status = domain.StatusOK
	result.ConfidenceLabel = Label(test.PValue)
	result.Significant = test.PValue < weakThreshold
	return result
}

// welch returns the unequal-variance t-test with a two-sided p-value.
// ok is false when both groups have zero variance.
func welch(a, b []float64) (*domain.TTest, bool) {
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	qa, qb := va/na, vb/nb
	se2 := qa + qb
	if se2 == 0 || math.IsNaN(se2) {
		return nil, false
	}

	t := (ma - mb) / math.Sqrt(se2)
	df := se2 * se2 / (qa*qa/(na-1) + qb*qb/(nb-1))
	return &domain.TTest{
		TStatistic:       t,
		DegreesOfFreedom: df,
		PValue:           twoSidedP(t, df),
	}, true
}

func twoSidedP(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		return 1
	}
	return p
}

func sortedPrices(prices []domain.DailyPrice) []domain.DailyPrice {
	out := make([]domain.DailyPrice, len(prices))
	copy(out, prices)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayMs < out[j].DayMs })
	return out
}
