package stats

import (
	"tweet-price-lab/internal/domain"
)

// SummarizeImpact aggregates the 1h and 24h changes that are present.
// Absent changes are excluded, never counted as zero.
func SummarizeImpact(events []*domain.AlignedEvent) *domain.ImpactSummary {
	var short, long []float64
	for _, e := range events {
		if e.Change1hPct != nil {
			short = append(short, *e.Change1hPct)
		}
		if e.Change24hPct != nil {
			long = append(long, *e.Change24hPct)
		}
	}

	s := describe(short)
	l := describe(long)
	return &domain.ImpactSummary{
		Events:          len(events),
		With1h:          s.Count,
		With24h:         l.Count,
		MeanChange1h:    s.Mean,
		MedianChange1h:  s.Median,
		WinRate1h:       s.WinRate,
		MeanChange24h:   l.Mean,
		MedianChange24h: l.Median,
		WinRate24h:      l.WinRate,
	}
}
