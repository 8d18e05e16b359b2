package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-price-lab/internal/domain"
)

const day0 = int64(1_700_000_000_000) / dayMs * dayMs

// seriesFromReturns builds day-indexed closes where the close on day i+1 is
// the close on day i moved by returns[i] percent.
func seriesFromReturns(start float64, returns []float64) []domain.DailyPrice {
	out := []domain.DailyPrice{{DayMs: day0, Close: start}}
	price := start
	for i, r := range returns {
		price *= 1 + r/100
		out = append(out, domain.DailyPrice{DayMs: day0 + int64(i+1)*dayMs, Close: price})
	}
	return out
}

func alternating(center, spread float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = center + spread
		} else {
			out[i] = center - spread
		}
	}
	return out
}

func TestLabel(t *testing.T) {
	tests := []struct {
		p    float64
		want domain.ConfidenceLabel
	}{
		{0.001, domain.ConfidenceStrong},
		{0.0099, domain.ConfidenceStrong},
		{0.01, domain.ConfidenceWeak},
		{0.03, domain.ConfidenceWeak},
		{0.05, domain.ConfidenceNone},
		{0.5, domain.ConfidenceNone},
		{math.NaN(), domain.ConfidenceNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.p), "p=%v", tt.p)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{MinGroupSize: 1, MinCorrelationPairs: 10, WindowDays: 7},
		{MinGroupSize: 5, MinCorrelationPairs: 2, WindowDays: 7},
		{MinGroupSize: 5, MinCorrelationPairs: 10, WindowDays: 0},
	}
	for _, c := range bad {
		assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
	}
}

func TestCompareDays_WeakSignificance(t *testing.T) {
	// 12 event days averaging +2.0%, then 12 quiet days averaging -0.5%.
	returns := append(alternating(2.0, 2.5, 12), alternating(-0.5, 2.5, 12)...)
	prices := seriesFromReturns(100, returns)

	var events []int64
	for d := int64(1); d <= 12; d++ {
		events = append(events, day0+d*dayMs+12*3600*1000)
	}

	res := CompareDays(prices, events, DefaultConfig())

	require.Equal(t, domain.StatusOK, res.Status)
	assert.Equal(t, 12, res.EventDays.Count)
	assert.Equal(t, 12, res.NonEventDays.Count)
	assert.InDelta(t, 2.0, *res.EventDays.Mean, 1e-9)
	assert.InDelta(t, -0.5, *res.NonEventDays.Mean, 1e-9)
	assert.InDelta(t, 2.5, *res.MeanDifference, 1e-9)
	assert.InDelta(t, 0.5, *res.EventDays.WinRate, 1e-9)

	require.NotNil(t, res.Test)
	assert.InDelta(t, 22.0, res.Test.DegreesOfFreedom, 1e-6)
	assert.Greater(t, res.Test.TStatistic, 2.074)
	assert.Less(t, res.Test.TStatistic, 2.819)
	assert.Greater(t, res.Test.PValue, 0.01)
	assert.Less(t, res.Test.PValue, 0.05)
	assert.True(t, res.Significant)
	assert.Equal(t, domain.ConfidenceWeak, res.ConfidenceLabel)
}

func TestCompareDays_InsufficientData(t *testing.T) {
	prices := seriesFromReturns(100, alternating(1, 1, 8))
	events := []int64{day0 + dayMs, day0 + 2*dayMs}

	res := CompareDays(prices, events, DefaultConfig())

	assert.Equal(t, domain.StatusInsufficientData, res.Status)
	assert.Equal(t, domain.ConfidenceInsufficientData, res.ConfidenceLabel)
	assert.False(t, res.Significant)
	assert.Nil(t, res.Test)
	assert.Equal(t, 2, res.EventDays.Count)
	assert.Equal(t, 6, res.NonEventDays.Count)
	require.NotNil(t, res.EventDays.Mean)
}

func TestCompareDays_NoVariance(t *testing.T) {
	prices := seriesFromReturns(100, make([]float64, 12))
	var events []int64
	for d := int64(1); d <= 6; d++ {
		events = append(events, day0+d*dayMs)
	}

	res := CompareDays(prices, events, DefaultConfig())

	assert.Equal(t, domain.StatusNoVariance, res.Status)
	assert.Nil(t, res.Test)
	assert.False(t, res.Significant)
}

func TestCompareDays_SkipsMissingDays(t *testing.T) {
	prices := []domain.DailyPrice{
		{DayMs: day0, Close: 100},
		{DayMs: day0 + 3*dayMs, Close: 110}, // days 1-2 missing
		{DayMs: day0 + 4*dayMs, Close: 99},
	}

	res := CompareDays(prices, []int64{day0 + 3*dayMs}, DefaultConfig())

	require.Equal(t, 1, res.EventDays.Count)
	assert.InDelta(t, 10.0, *res.EventDays.Mean, 1e-9)
	require.Equal(t, 1, res.NonEventDays.Count)
	assert.InDelta(t, -10.0, *res.NonEventDays.Mean, 1e-9)
	assert.Nil(t, res.NonEventDays.Stddev)
}

func TestCompareDays_Empty(t *testing.T) {
	res := CompareDays(nil, nil, DefaultConfig())

	assert.Equal(t, domain.StatusInsufficientData, res.Status)
	assert.Nil(t, res.MeanDifference)
	assert.Nil(t, res.EventDays.Mean)
}

func TestRollingCorrelation_PerfectlyLinear(t *testing.T) {
	// One event per day; the trailing count ramps 0..7 and price tracks it.
	var events []int64
	var prices []domain.DailyPrice
	for d := int64(0); d < 20; d++ {
		events = append(events, day0+d*dayMs+3600*1000)
		count := d
		if count > 7 {
			count = 7
		}
		prices = append(prices, domain.DailyPrice{DayMs: day0 + d*dayMs, Close: 10 + float64(count)})
	}

	res := RollingCorrelation(prices, events, DefaultConfig())

	require.Equal(t, domain.StatusOK, res.Status)
	assert.Equal(t, 20, res.Pairs)
	assert.Equal(t, 7, res.WindowDays)
	require.Len(t, res.Points, 20)
	assert.Equal(t, 0, res.Points[0].EventCount)
	assert.Equal(t, 3, res.Points[3].EventCount)
	assert.Equal(t, 7, res.Points[19].EventCount)

	require.NotNil(t, res.Pearson)
	assert.InDelta(t, 1.0, *res.Pearson, 1e-9)
	assert.InDelta(t, 0.0, *res.PValue, 1e-6)
	assert.True(t, res.Significant)
	assert.Equal(t, domain.ConfidenceStrong, res.ConfidenceLabel)
}

func TestRollingCorrelation_WindowExcludesSameDay(t *testing.T) {
	prices := []domain.DailyPrice{{DayMs: day0 + 10*dayMs, Close: 1}}
	events := []int64{
		day0 + 2*dayMs,  // outside: before d-7
		day0 + 3*dayMs,  // first day of window
		day0 + 9*dayMs,  // last day of window
		day0 + 10*dayMs, // same day, excluded
	}

	res := RollingCorrelation(prices, events, DefaultConfig())

	require.Len(t, res.Points, 1)
	assert.Equal(t, 2, res.Points[0].EventCount)
}

func TestRollingCorrelation_InsufficientPairs(t *testing.T) {
	var prices []domain.DailyPrice
	for d := int64(0); d < 9; d++ {
		prices = append(prices, domain.DailyPrice{DayMs: day0 + d*dayMs, Close: float64(d)})
	}

	res := RollingCorrelation(prices, []int64{day0}, DefaultConfig())

	assert.Equal(t, domain.StatusInsufficientData, res.Status)
	assert.Equal(t, domain.ConfidenceInsufficientData, res.ConfidenceLabel)
	assert.Nil(t, res.Pearson)
	assert.Nil(t, res.PValue)
	assert.False(t, res.Significant)
	assert.Len(t, res.Points, 9)
}

func TestRollingCorrelation_NoEventsIsNoVariance(t *testing.T) {
	var prices []domain.DailyPrice
	for d := int64(0); d < 12; d++ {
		prices = append(prices, domain.DailyPrice{DayMs: day0 + d*dayMs, Close: float64(d + 1)})
	}

	res := RollingCorrelation(prices, nil, DefaultConfig())

	assert.Equal(t, domain.StatusNoVariance, res.Status)
	assert.Nil(t, res.Pearson)
	assert.False(t, res.Significant)
}

func TestSummarizeImpact(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	events := []*domain.AlignedEvent{
		{Change1hPct: f(2), Change24hPct: f(-4)},
		{Change1hPct: f(-1)},
		{Change1hPct: f(5), Change24hPct: f(6)},
		{},
	}

	s := SummarizeImpact(events)

	assert.Equal(t, 4, s.Events)
	assert.Equal(t, 3, s.With1h)
	assert.Equal(t, 2, s.With24h)
	assert.InDelta(t, 2.0, *s.MeanChange1h, 1e-9)
	assert.InDelta(t, 2.0, *s.MedianChange1h, 1e-9)
	assert.InDelta(t, 2.0/3.0, *s.WinRate1h, 1e-9)
	assert.InDelta(t, 1.0, *s.MeanChange24h, 1e-9)
	assert.InDelta(t, 1.0, *s.MedianChange24h, 1e-9)
	assert.InDelta(t, 0.5, *s.WinRate24h, 1e-9)
}

func TestSummarizeImpact_AllAbsent(t *testing.T) {
	s := SummarizeImpact([]*domain.AlignedEvent{{}, {}})

	assert.Equal(t, 2, s.Events)
	assert.Zero(t, s.With1h)
	assert.Nil(t, s.MeanChange1h)
	assert.Nil(t, s.WinRate24h)
}

func TestComputePercentile(t *testing.T) {
	assert.Equal(t, 0.0, computePercentile(nil, 0.5))
	assert.Equal(t, 3.0, computePercentile([]float64{3}, 0.5))
	assert.Equal(t, 2.5, computePercentile([]float64{1, 2, 3, 4}, 0.5))
	assert.Equal(t, 4.0, computePercentile([]float64{1, 2, 3, 4}, 1.0))
}
