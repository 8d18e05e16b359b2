// Package quiet finds posting gaps and measures price drift across them.
package quiet

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// PriceResolver resolves the best available price for a timestamp.
type PriceResolver interface {
	Resolve(ctx context.Context, assetID string, target int64) (domain.PriceLookup, error)
}

// Gap is a raw posting gap before prices are attached.
type Gap struct {
	StartMs int64
	EndMs   int64
	Ongoing bool
}

// FindGaps returns gaps of at least minGapMs between consecutive timestamps,
// plus an ongoing gap from the last timestamp to nowMs. No timestamps, no gaps.
func FindGaps(timestamps []int64, minGapMs, nowMs int64) []Gap {
	if len(timestamps) == 0 {
		return nil
	}

	ts := make([]int64, len(timestamps))
	copy(ts, timestamps)
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })

	var gaps []Gap
	for i := 1; i < len(ts); i++ {
		if ts[i]-ts[i-1] >= minGapMs {
			gaps = append(gaps, Gap{StartMs: ts[i-1], EndMs: ts[i]})
		}
	}

	last := ts[len(ts)-1]
	if nowMs-last >= minGapMs {
		gaps = append(gaps, Gap{StartMs: last, EndMs: nowMs, Ongoing: true})
	}
	return gaps
}

// Detector attaches prices to posting gaps.
type Detector struct {
	resolver         PriceResolver
	candles          storage.CandleReader
	rangeResolutions []domain.Resolution
}

// NewDetector creates a Detector. rangeResolutions are ordered finest first;
// coarser series fill the part of a gap the finer ones do not reach.
func NewDetector(resolver PriceResolver, candles storage.CandleReader, rangeResolutions []domain.Resolution) *Detector {
	return &Detector{
		resolver:         resolver,
		candles:          candles,
		rangeResolutions: rangeResolutions,
	}
}

// Detect finds quiet periods between chronologically sorted events and prices them.
func (d *Detector) Detect(ctx context.Context, assetID string, events []*domain.ClusteredEvent, minGap time.Duration, nowMs int64) ([]*domain.QuietPeriod, error) {
	timestamps := make([]int64, len(events))
	for i, e := range events {
		timestamps[i] = e.EventTimestamp
	}

	gaps := FindGaps(timestamps, minGap.Milliseconds(), nowMs)
	out := make([]*domain.QuietPeriod, 0, len(gaps))
	for _, g := range gaps {
		qp, err := d.price(ctx, assetID, g)
		if err != nil {
			return nil, fmt.Errorf("price quiet period %d-%d: %w", g.StartMs, g.EndMs, err)
		}
		out = append(out, qp)
	}
	return out, nil
}

func (d *Detector) price(ctx context.Context, assetID string, g Gap) (*domain.QuietPeriod, error) {
	qp := &domain.QuietPeriod{
		AssetID:       assetID,
		StartMs:       g.StartMs,
		EndMs:         g.EndMs,
		GapDurationMs: g.EndMs - g.StartMs,
		IsOngoing:     g.Ongoing,
	}

	before, err := d.resolver.Resolve(ctx, assetID, g.StartMs)
	if err != nil {
		return nil, err
	}
	qp.PriceBefore = before.Price

	during, err := d.scan(ctx, assetID, g.StartMs, g.EndMs)
	if err != nil {
		return nil, err
	}
	if len(during) > 0 {
		lo, hi := during[0].Close, during[0].Close
		for _, c := range during[1:] {
			if c.Close < lo {
				lo = c.Close
			}
			if c.Close > hi {
				hi = c.Close
			}
		}
		end := during[len(during)-1].Close
		qp.PriceMinDuring = &lo
		qp.PriceMaxDuring = &hi
		qp.PriceAtGapEnd = &end
	}

	if !g.Ongoing {
		after, err := d.priceAfter(ctx, assetID, g.EndMs)
		if err != nil {
			return nil, err
		}
		qp.PriceAfter = after
	}

	qp.PctChangeDuring = domain.PctChange(qp.PriceBefore, qp.PriceAtGapEnd)
	qp.PctChangeTotal = domain.PctChange(qp.PriceBefore, qp.PriceAfter)
	return qp, nil
}

// scan returns candles in [start, end] merged across range resolutions.
// Resolutions run finest first; a coarser candle is kept only when its whole
// bucket ends before the earliest finer candle already collected.
func (d *Detector) scan(ctx context.Context, assetID string, start, end int64) ([]*domain.Candle, error) {
	var out []*domain.Candle
	coveredFrom := int64(math.MaxInt64)
	for _, res := range d.rangeResolutions {
		candles, err := d.candles.GetByTimeRange(ctx, assetID, res, start, end)
		if err != nil {
			return nil, fmt.Errorf("scan %s candles: %w", res, err)
		}
		width := res.Duration().Milliseconds()
		first := coveredFrom
		for _, c := range candles {
			if coveredFrom != math.MaxInt64 && c.TimestampMs+width > coveredFrom {
				continue
			}
			out = append(out, c)
			if c.TimestampMs < first {
				first = c.TimestampMs
			}
		}
		coveredFrom = first
		if coveredFrom <= start {
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampMs < out[j].TimestampMs })
	return out, nil
}

// priceAfter prefers the first candle opening at or within one bucket after ts,
// then falls back to the resolver at ts.
func (d *Detector) priceAfter(ctx context.Context, assetID string, ts int64) (*float64, error) {
	for _, res := range d.rangeResolutions {
		candles, err := d.candles.GetByTimeRange(ctx, assetID, res, ts, ts+res.Duration().Milliseconds())
		if err != nil {
			return nil, fmt.Errorf("scan %s candles after gap: %w", res, err)
		}
		if len(candles) > 0 {
			p := candles[0].Close
			return &p, nil
		}
	}

	at, err := d.resolver.Resolve(ctx, assetID, ts)
	if err != nil {
		return nil, err
	}
	return at.Price, nil
}
