// Package alignment attaches prices at, one hour after and one day after
// each clustered event.
package alignment

import (
	"context"
	"fmt"
	"time"

	"tweet-price-lab/internal/domain"
)

// PriceResolver resolves the best available price for a timestamp.
type PriceResolver interface {
	Resolve(ctx context.Context, assetID string, target int64) (domain.PriceLookup, error)
}

// Offsets after the event timestamp at which prices are sampled.
const (
	ShortHorizon = time.Hour
	LongHorizon  = 24 * time.Hour
)

// Aligner is stateless apart from its resolver and as-of timestamp.
type Aligner struct {
	resolver PriceResolver
	asOfMs   int64
}

// NewAligner creates an Aligner. Targets after asOfMs resolve to absent;
// asOfMs <= 0 disables the cut-off.
func NewAligner(resolver PriceResolver, asOfMs int64) *Aligner {
	return &Aligner{resolver: resolver, asOfMs: asOfMs}
}

// Align resolves prices for one event. The input event is not modified.
func (a *Aligner) Align(ctx context.Context, ev *domain.ClusteredEvent) (*domain.AlignedEvent, error) {
	at, err := a.lookup(ctx, ev.AssetID, ev.EventTimestamp)
	if err != nil {
		return nil, err
	}
	short, err := a.lookup(ctx, ev.AssetID, ev.EventTimestamp+ShortHorizon.Milliseconds())
	if err != nil {
		return nil, err
	}
	long, err := a.lookup(ctx, ev.AssetID, ev.EventTimestamp+LongHorizon.Milliseconds())
	if err != nil {
		return nil, err
	}

	out := &domain.AlignedEvent{
		ClusteredEvent:    *ev,
		PriceAtEvent:      at.Price,
		PricePlus1h:       short.Price,
		PricePlus24h:      long.Price,
		ResolutionAtEvent: at.Resolution,
		ResolutionPlus1h:  short.Resolution,
		ResolutionPlus24h: long.Resolution,
		StaleAtEvent:      at.IsStale,
	}
	out.MemberPostIDs = append([]string(nil), ev.MemberPostIDs...)
	out.Change1hPct = domain.PctChange(out.PriceAtEvent, out.PricePlus1h)
	out.Change24hPct = domain.PctChange(out.PriceAtEvent, out.PricePlus24h)

	return out, nil
}

// AlignAll aligns events in order.
func (a *Aligner) AlignAll(ctx context.Context, events []*domain.ClusteredEvent) ([]*domain.AlignedEvent, error) {
	out := make([]*domain.AlignedEvent, 0, len(events))
	for _, ev := range events {
		aligned, err := a.Align(ctx, ev)
		if err != nil {
			return nil, fmt.Errorf("align event %s: %w", ev.EventID, err)
		}
		out = append(out, aligned)
	}
	return out, nil
}

func (a *Aligner) lookup(ctx context.Context, assetID string, ts int64) (domain.PriceLookup, error) {
	if a.asOfMs > 0 && ts > a.asOfMs {
		return domain.PriceLookup{}, nil
	}
	return a.resolver.Resolve(ctx, assetID, ts)
}
