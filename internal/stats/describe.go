package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"tweet-price-lab/internal/domain"
)

const (
	strongThreshold = 0.01
	weakThreshold   = 0.05
)

// Label maps a p-value to the fixed confidence policy.
func Label(p float64) domain.ConfidenceLabel {
	switch {
	case math.IsNaN(p):
		return domain.ConfidenceNone
	case p < strongThreshold:
		return domain.ConfidenceStrong
	case p < weakThreshold:
		return domain.ConfidenceWeak
	default:
		return domain.ConfidenceNone
	}
}

// describe summarises a group of returns. Empty groups carry only the count.
func describe(values []float64) domain.GroupStats {
	gs := domain.GroupStats{Count: len(values)}
	if len(values) == 0 {
		return gs
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := stat.Mean(sorted, nil)
	median := computePercentile(sorted, 0.50)
	winRate := computeWinRate(sorted)
	gs.Mean = &mean
	gs.Median = &median
	gs.WinRate = &winRate

	if len(values) >= 2 {
		sd := stat.StdDev(sorted, nil) // n-1 denominator
		gs.Stddev = &sd
	}
	return gs
}

// computeWinRate returns the share of strictly positive values.
func computeWinRate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	wins := 0
	for _, v := range values {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(values))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.50 = median).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
