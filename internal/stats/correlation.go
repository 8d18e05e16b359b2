package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/normalization"
)

const dayMs = int64(24 * 60 * 60 * 1000)

// RollingCorrelation pairs each priced day d with the number of events in days
// [d-WindowDays, d-1] and computes the Pearson correlation with its p-value.
func RollingCorrelation(prices []domain.DailyPrice, eventTimestamps []int64, cfg Config) *domain.CorrelationResult {
	ts := make([]int64, len(eventTimestamps))
	copy(ts, eventTimestamps)
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	sorted := sortedPrices(prices)
	window := int64(cfg.WindowDays) * dayMs

	points := make([]domain.RollingPoint, 0, len(sorted))
	counts := make([]float64, 0, len(sorted))
	levels := make([]float64, 0, len(sorted))
	for _, p := range sorted {
		day := normalization.DayStart(p.DayMs)
		n := countInRange(ts, day-window, day)
		points = append(points, domain.RollingPoint{DayMs: day, EventCount: n, Price: p.Close})
		counts = append(counts, float64(n))
		levels = append(levels, p.Close)
	}

	result := &domain.CorrelationResult{
		WindowDays: cfg.WindowDays,
		Pairs:      len(points),
		Points:     points,
	}
	if len(points) < cfg.MinCorrelationPairs {
		result.Status = domain.StatusInsufficientData
		result.ConfidenceLabel = domain.ConfidenceInsufficientData
		return result
	}
	if stat.Variance(counts, nil) == 0 || stat.Variance(levels, nil) == 0 {
		result.Status = domain.StatusNoVariance
		result.ConfidenceLabel = domain.ConfidenceInsufficientData
		return result
	}

	r := stat.Correlation(counts, levels, nil)
	p := pearsonP(r, len(points))
	result.Pearson = &r
	result.PValue = &p
	result.Status = domain.StatusOK
	result.ConfidenceLabel = Label(p)
	result.Significant = p < weakThreshold
	return result
}

// pearsonP tests r against zero with t = r*sqrt((n-2)/(1-r^2)) on n-2 df.
func pearsonP(r float64, n int) float64 {
	if 1-r*r <= 0 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return twoSidedP(t, df)
}

// countInRange counts sorted timestamps in [from, to).
func countInRange(sorted []int64, from, to int64) int {
	lo := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= from })
	hi := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= to })
	return hi - lo
}
