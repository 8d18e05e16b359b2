package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// Generator produces reports from published analyses.
type Generator struct {
	assetStore storage.AssetStore
	results    storage.ResultReader
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(assetStore storage.AssetStore, results storage.ResultReader) *Generator {
	return &Generator{
		assetStore: assetStore,
		results:    results,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads the latest analysis of every registered asset.
// Assets without a published analysis are listed in Report.Missing.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	assets, err := g.assetStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	analyses := make([]*domain.AssetAnalysis, 0, len(assets))
	symbols := make(map[string]string, len(assets))
	var missing []string
	for _, a := range assets {
		symbols[a.ID] = a.Symbol
		res, err := g.results.Get(ctx, a.ID)
		if errors.Is(err, storage.ErrNotFound) {
			missing = append(missing, a.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load analysis %s: %w", a.ID, err)
		}
		analyses = append(analyses, res)
	}

	r := Build(g.now(), analyses, symbols)
	r.Summary.TotalAssets = len(assets)
	sort.Strings(missing)
	r.Missing = missing
	return r, nil
}

// Build assembles a report from analyses already in hand. symbols may be nil.
func Build(generatedAt time.Time, analyses []*domain.AssetAnalysis, symbols map[string]string) *Report {
	sorted := make([]*domain.AssetAnalysis, 0, len(analyses))
	for _, a := range analyses {
		if a != nil {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AssetID < sorted[j].AssetID })

	r := &Report{
		GeneratedAt: generatedAt,
		Assets:      make([]AssetSection, 0, len(sorted)),
	}
	for _, a := range sorted {
		section := buildSection(a, symbols[a.AssetID])
		r.Assets = append(r.Assets, section)
		accumulate(&r.Summary, a)

		// A report spans one run when every asset came from it
		if r.RunID == "" {
			r.RunID, r.AsOfMs = a.RunID, a.AsOfMs
		} else if r.RunID != a.RunID {
			r.RunID = "mixed"
		}
	}
	r.Summary.TotalAssets = len(sorted)
	r.Summary.AnalysedAssets = len(sorted)
	return r
}

func accumulate(s *Summary, a *domain.AssetAnalysis) {
	s.TotalPosts += a.PostCount
	s.TotalEvents += len(a.Events)
	for _, ev := range a.Events {
		if ev.FormedViaThread {
			s.ThreadEvents++
		}
	}
	s.TotalQuietPeriods += len(a.QuietPeriods)
	for _, q := range a.QuietPeriods {
		if q.IsOngoing {
			s.OngoingQuiet++
		}
	}
	if a.Daily != nil && a.Daily.Significant {
		s.SignificantDaily++
	}
	if a.Correlation != nil && a.Correlation.Significant {
		s.SignificantCorr++
	}
}

func buildSection(a *domain.AssetAnalysis, symbol string) AssetSection {
	s := AssetSection{
		AssetID:      a.AssetID,
		Symbol:       symbol,
		Author:       a.Author,
		RunID:        a.RunID,
		AsOfMs:       a.AsOfMs,
		PostCount:    a.PostCount,
		Events:       make([]EventRow, 0, len(a.Events)),
		QuietPeriods: make([]QuietRow, 0, len(a.QuietPeriods)),
	}

	for _, ev := range a.Events {
		s.Events = append(s.Events, EventRow{
			AssetID:         a.AssetID,
			EventID:         ev.EventID,
			AnchorPostID:    ev.AnchorPostID,
			TimestampMs:     ev.EventTimestamp,
			ClusterSize:     ev.ClusterSize,
			FormedViaThread: ev.FormedViaThread,
			PriceAtEvent:    ev.PriceAtEvent,
			PricePlus1h:     ev.PricePlus1h,
			PricePlus24h:    ev.PricePlus24h,
			Change1hPct:     ev.Change1hPct,
			Change24hPct:    ev.Change24hPct,
			StaleAtEvent:    ev.StaleAtEvent,
			Overridden:      ev.Overridden,
			Annotation:      ev.Annotation,
		})
	}

	for _, q := range a.QuietPeriods {
		s.QuietPeriods = append(s.QuietPeriods, QuietRow{
			AssetID:         a.AssetID,
			StartMs:         q.StartMs,
			EndMs:           q.EndMs,
			GapDays:         q.GapDays(),
			PriceBefore:     q.PriceBefore,
			PriceAfter:      q.PriceAfter,
			PriceMinDuring:  q.PriceMinDuring,
			PriceMaxDuring:  q.PriceMaxDuring,
			PriceAtGapEnd:   q.PriceAtGapEnd,
			PctChangeDuring: q.PctChangeDuring,
			PctChangeTotal:  q.PctChangeTotal,
			IsOngoing:       q.IsOngoing,
		})
	}

	s.Daily = buildDailyRow(a.Daily)
	s.Correlation = buildCorrelationRow(a.Correlation)
	s.Impact = buildImpactRow(a.Impact)
	return s
}

func buildDailyRow(d *domain.DailyComparisonResult) DailyRow {
	if d == nil {
		return DailyRow{Status: string(domain.StatusInsufficientData), Label: string(domain.ConfidenceInsufficientData)}
	}
	row := DailyRow{
		Status:         string(d.Status),
		Label:          string(d.ConfidenceLabel),
		EventDays:      d.EventDays.Count,
		NonEventDays:   d.NonEventDays.Count,
		EventMean:      d.EventDays.Mean,
		NonEventMean:   d.NonEventDays.Mean,
		MeanDifference: d.MeanDifference,
	}
	if d.Test != nil {
		t, p := d.Test.TStatistic, d.Test.PValue
		row.TStatistic, row.PValue = &t, &p
	}
	return row
}

func buildCorrelationRow(c *domain.CorrelationResult) CorrelationRow {
	if c == nil {
		return CorrelationRow{Status: string(domain.StatusInsufficientData), Label: string(domain.ConfidenceInsufficientData)}
	}
	return CorrelationRow{
		Status:     string(c.Status),
		Label:      string(c.ConfidenceLabel),
		WindowDays: c.WindowDays,
		Pairs:      c.Pairs,
		Pearson:    c.Pearson,
		PValue:     c.PValue,
	}
}

func buildImpactRow(i *domain.ImpactSummary) ImpactRow {
	if i == nil {
		return ImpactRow{}
	}
	return ImpactRow{
		Events:          i.Events,
		With1h:          i.With1h,
		With24h:         i.With24h,
		MeanChange1h:    i.MeanChange1h,
		MedianChange1h:  i.MedianChange1h,
		WinRate1h:       i.WinRate1h,
		MeanChange24h:   i.MeanChange24h,
		MedianChange24h: i.MedianChange24h,
		WinRate24h:      i.WinRate24h,
	}
}
