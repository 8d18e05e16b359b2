package domain

// StatStatus tells whether a statistic could be computed.
type StatStatus string

const (
	StatusOK               StatStatus = "ok"
	StatusInsufficientData StatStatus = "insufficient_data"
	StatusNoVariance       StatStatus = "no_variance"
)

// ConfidenceLabel is the fixed significance labeling policy.
type ConfidenceLabel string

const (
	ConfidenceStrong           ConfidenceLabel = "strong" // p < 0.01
	ConfidenceWeak             ConfidenceLabel = "weak"   // p < 0.05
	ConfidenceNone             ConfidenceLabel = "none"
	ConfidenceInsufficientData ConfidenceLabel = "insufficient_data"
)

// GroupStats summarises daily returns (percent) of one group of days.
type GroupStats struct {
	Count   int      `json:"count"`
	Mean    *float64 `json:"mean"`
	Median  *float64 `json:"median"`
	WinRate *float64 `json:"win_rate"` // share of strictly positive returns
	Stddev  *float64 `json:"stddev"`
}

// TTest is a two-sample Welch t-test result.
type TTest struct {
	TStatistic       float64 `json:"t_statistic"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
}

// DailyComparisonResult compares returns on event days against non-event days.
type DailyComparisonResult struct {
	EventDays       GroupStats      `json:"event_days"`
	NonEventDays    GroupStats      `json:"non_event_days"`
	MeanDifference  *float64        `json:"mean_difference"`
	Test            *TTest          `json:"t_test"`
	Status          StatStatus      `json:"status"`
	Significant     bool            `json:"significant"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`
}

// RollingPoint pairs one day's price with the event count of its trailing window.
type RollingPoint struct {
	DayMs      int64   `json:"day_ms"`
	EventCount int     `json:"event_count"`
	Price      float64 `json:"price"`
}

// CorrelationResult is the Pearson correlation between rolling event frequency and price level.
type CorrelationResult struct {
	WindowDays      int             `json:"window_days"`
	Pairs           int             `json:"pairs"`
	Pearson         *float64        `json:"pearson"`
	PValue          *float64        `json:"p_value"`
	Status          StatStatus      `json:"status"`
	Significant     bool            `json:"significant"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`
	Points          []RollingPoint  `json:"points"`
}

// ImpactSummary aggregates the price changes following aligned events.
type ImpactSummary struct {
	Events          int      `json:"events"`
	With1h          int      `json:"with_1h"`
	With24h         int      `json:"with_24h"`
	MeanChange1h    *float64 `json:"mean_change_1h_pct"`
	MedianChange1h  *float64 `json:"median_change_1h_pct"`
	WinRate1h       *float64 `json:"win_rate_1h"`
	MeanChange24h   *float64 `json:"mean_change_24h_pct"`
	MedianChange24h *float64 `json:"median_change_24h_pct"`
	WinRate24h      *float64 `json:"win_rate_24h"`
}

// AssetAnalysis is the full output of one per-asset run.
type AssetAnalysis struct {
	RunID        string                 `json:"run_id"`
	AssetID      string                 `json:"asset_id"`
	Author       string                 `json:"author"`
	AsOfMs       int64                  `json:"as_of_ms"`
	PostCount    int                    `json:"post_count"`
	Events       []*AlignedEvent        `json:"events"`
	QuietPeriods []*QuietPeriod         `json:"quiet_periods"`
	DailyPrices  []DailyPrice           `json:"daily_prices"`
	Daily        *DailyComparisonResult `json:"daily_comparison"`
	Correlation  *CorrelationResult     `json:"correlation"`
	Impact       *ImpactSummary         `json:"impact"`
}
