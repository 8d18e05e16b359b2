package reporting

import "time"

// Report is the per-run analysis report rendered to Markdown and CSV.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	AsOfMs      int64

	Summary     Summary
	DataQuality DataQualitySection

	// Assets sorted by asset_id
	Assets []AssetSection

	// Assets registered but without a published analysis
	Missing []string
}

// DataQualitySection contains sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Summary aggregates counts across all analysed assets.
type Summary struct {
	TotalAssets       int
	AnalysedAssets    int
	TotalPosts        int
	TotalEvents       int
	ThreadEvents      int
	TotalQuietPeriods int
	OngoingQuiet      int
	SignificantDaily  int
	SignificantCorr   int
}

// AssetSection is everything reported for one asset.
type AssetSection struct {
	AssetID   string
	Symbol    string
	Author    string
	RunID     string
	AsOfMs    int64
	PostCount int

	Events       []EventRow
	QuietPeriods []QuietRow
	Daily        DailyRow
	Correlation  CorrelationRow
	Impact       ImpactRow
}

// EventRow is one aligned event.
type EventRow struct {
	AssetID         string
	EventID         string
	AnchorPostID    string
	TimestampMs     int64
	ClusterSize     int
	FormedViaThread bool
	PriceAtEvent    *float64
	PricePlus1h     *float64
	PricePlus24h    *float64
	Change1hPct     *float64
	Change24hPct    *float64
	StaleAtEvent    bool
	Overridden      bool
	Annotation      string
}

// QuietRow is one quiet period.
type QuietRow struct {
	AssetID         string
	StartMs         int64
	EndMs           int64
	GapDays         float64
	PriceBefore     *float64
	PriceAfter      *float64
	PriceMinDuring  *float64
	PriceMaxDuring  *float64
	PriceAtGapEnd   *float64
	PctChangeDuring *float64
	PctChangeTotal  *float64
	IsOngoing       bool
}

// DailyRow flattens the event-day vs non-event-day comparison.
type DailyRow struct {
	Status         string
	Label          string
	EventDays      int
	NonEventDays   int
	EventMean      *float64
	NonEventMean   *float64
	MeanDifference *float64
	TStatistic     *float64
	PValue         *float64
}

// CorrelationRow flattens the rolling frequency/price correlation.
type CorrelationRow struct {
	Status     string
	Label      string
	WindowDays int
	Pairs      int
	Pearson    *float64
	PValue     *float64
}

// ImpactRow flattens the post-event impact summary.
type ImpactRow struct {
	Events          int
	With1h          int
	With24h         int
	MeanChange1h    *float64
	MedianChange1h  *float64
	WinRate1h       *float64
	MeanChange24h   *float64
	MedianChange24h *float64
	WinRate24h      *float64
}
