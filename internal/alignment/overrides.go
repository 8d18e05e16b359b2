package alignment

import (
	"errors"
	"fmt"
	"math"

	"tweet-price-lab/internal/domain"
)

// ErrInvalidOverride is returned for overrides that cannot be applied.
var ErrInvalidOverride = errors.New("invalid override")

// Offset names one of the three aligned price points.
type Offset string

const (
	OffsetEvent Offset = "event"
	Offset1h    Offset = "1h"
	Offset24h   Offset = "24h"
)

// Override is a manual correction to one aligned event.
// Implementations are Exclude, PinPrice and Annotate.
type Override interface {
	// Target returns the event id the override applies to.
	Target() string
	// Validate rejects malformed overrides before any are applied.
	Validate() error
	// apply returns a corrected copy, or keep=false to drop the event.
	apply(e *domain.AlignedEvent) (out *domain.AlignedEvent, keep bool)
}

// Exclude removes an event from the output.
type Exclude struct {
	EventID string
	Reason  string
}

// PinPrice replaces one price point and recomputes the dependent changes.
type PinPrice struct {
	EventID string
	Offset  Offset
	Price   float64
}

// Annotate attaches a label to an event.
type Annotate struct {
	EventID string
	Label   string
}

func (o Exclude) Target() string  { return o.EventID }
func (o PinPrice) Target() string { return o.EventID }
func (o Annotate) Target() string { return o.EventID }

func (o Exclude) Validate() error {
	if o.EventID == "" {
		return fmt.Errorf("%w: exclude without event id", ErrInvalidOverride)
	}
	return nil
}

func (o PinPrice) Validate() error {
	if o.EventID == "" {
		return fmt.Errorf("%w: pin_price without event id", ErrInvalidOverride)
	}
	switch o.Offset {
	case OffsetEvent, Offset1h, Offset24h:
	default:
		return fmt.Errorf("%w: pin_price for %s has unknown offset %q", ErrInvalidOverride, o.EventID, o.Offset)
	}
	if o.Price <= 0 || math.IsInf(o.Price, 0) || math.IsNaN(o.Price) {
		return fmt.Errorf("%w: pin_price for %s needs a positive finite price, got %v", ErrInvalidOverride, o.EventID, o.Price)
	}
	return nil
}

func (o Annotate) Validate() error {
	if o.EventID == "" || o.Label == "" {
		return fmt.Errorf("%w: annotate needs event id and label", ErrInvalidOverride)
	}
	return nil
}

func (o Exclude) apply(*domain.AlignedEvent) (*domain.AlignedEvent, bool) {
	return nil, false
}

func (o PinPrice) apply(e *domain.AlignedEvent) (*domain.AlignedEvent, bool) {
	price := o.Price
	switch o.Offset {
	case OffsetEvent:
		e.PriceAtEvent = &price
		e.ResolutionAtEvent = nil
		e.StaleAtEvent = false
	case Offset1h:
		e.PricePlus1h = &price
		e.ResolutionPlus1h = nil
	case Offset24h:
		e.PricePlus24h = &price
		e.ResolutionPlus24h = nil
	}
	e.Change1hPct = domain.PctChange(e.PriceAtEvent, e.PricePlus1h)
	e.Change24hPct = domain.PctChange(e.PriceAtEvent, e.PricePlus24h)
	e.Overridden = true
	return e, true
}

func (o Annotate) apply(e *domain.AlignedEvent) (*domain.AlignedEvent, bool) {
	e.Annotation = o.Label
	e.Overridden = true
	return e, true
}

// ApplyOverrides returns a new slice with overrides applied in the order given.
// Events without overrides are copied unchanged; input events are never mutated.
func ApplyOverrides(events []*domain.AlignedEvent, overrides []Override) []*domain.AlignedEvent {
	byEvent := make(map[string][]Override, len(overrides))
	for _, o := range overrides {
		byEvent[o.Target()] = append(byEvent[o.Target()], o)
	}

	out := make([]*domain.AlignedEvent, 0, len(events))
	for _, e := range events {
		cur, keep := e.Clone(), true
		for _, o := range byEvent[e.EventID] {
			if cur, keep = o.apply(cur); !keep {
				break
			}
		}
		if keep {
			out = append(out, cur)
		}
	}
	return out
}

// Unmatched returns the ids of overrides that target no event.
func Unmatched(events []*domain.AlignedEvent, overrides []Override) []string {
	ids := make(map[string]struct{}, len(events))
	for _, e := range events {
		ids[e.EventID] = struct{}{}
	}

	var missing []string
	reported := make(map[string]struct{})
	for _, o := range overrides {
		id := o.Target()
		if _, ok := ids[id]; ok {
			continue
		}
		if _, dup := reported[id]; dup {
			continue
		}
		reported[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}
