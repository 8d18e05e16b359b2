package lookup

import (
	"context"
	"errors"
	"fmt"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// Resolver finds the best available price for a timestamp by walking the
// policy from finest to coarsest resolution.
type Resolver struct {
	candles storage.CandleReader
	policy  Policy
}

// NewResolver creates a Resolver. The policy must already be validated.
func NewResolver(candles storage.CandleReader, policy Policy) *Resolver {
	return &Resolver{candles: candles, policy: policy}
}

// Policy returns the resolver's precedence policy.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve returns the close of the first candle, in policy order, whose
// timestamp is at or before target and within that resolution's staleness bound.
// No acceptable candle is not an error: the returned lookup has a nil Price.
func (r *Resolver) Resolve(ctx context.Context, assetID string, target int64) (domain.PriceLookup, error) {
	for _, step := range r.policy.Steps {
		c, err := r.candles.GetLatestAtOrBefore(ctx, assetID, step.Resolution, target)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return domain.PriceLookup{}, fmt.Errorf("latest %s candle for %s at %d: %w", step.Resolution, assetID, target, err)
		}

		age := target - c.TimestampMs
		if age > step.MaxStaleness.Milliseconds() {
			continue
		}

		price := c.Close
		res := step.Resolution
		ts := c.TimestampMs
		return domain.PriceLookup{
			Price:             &price,
			Resolution:        &res,
			CandleTimestampMs: &ts,
			IsStale:           age >= res.Duration().Milliseconds(),
		}, nil
	}

	return domain.PriceLookup{}, nil
}
