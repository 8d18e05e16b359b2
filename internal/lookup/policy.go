package lookup

import (
	"errors"
	"fmt"
	"time"

	"tweet-price-lab/internal/domain"
)

// ErrInvalidPolicy is returned when a resolution policy is rejected.
var ErrInvalidPolicy = errors.New("invalid resolution policy")

// Step is one entry of the precedence list: a resolution and how old its candle may be.
type Step struct {
	Resolution   domain.Resolution
	MaxStaleness time.Duration
}

// Policy is the ordered resolution precedence, finest first.
type Policy struct {
	Steps []Step
}

// DefaultPolicy returns minute (1h), hour (24h), day (7d) staleness bounds.
func DefaultPolicy() Policy {
	return Policy{Steps: []Step{
		{Resolution: domain.Resolution1m, MaxStaleness: time.Hour},
		{Resolution: domain.Resolution1h, MaxStaleness: 24 * time.Hour},
		{Resolution: domain.Resolution1d, MaxStaleness: 7 * 24 * time.Hour},
	}}
}

// Validate checks that resolutions are known, strictly coarsening,
// and that staleness bounds are positive and non-decreasing.
func (p Policy) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no resolutions", ErrInvalidPolicy)
	}

	for i, s := range p.Steps {
		width := s.Resolution.Duration()
		if width == 0 {
			return fmt.Errorf("%w: unknown resolution %q", ErrInvalidPolicy, s.Resolution)
		}
		if s.MaxStaleness <= 0 {
			return fmt.Errorf("%w: staleness bound for %s must be positive", ErrInvalidPolicy, s.Resolution)
		}
		if i == 0 {
			continue
		}
		prev := p.Steps[i-1]
		if width <= prev.Resolution.Duration() {
			return fmt.Errorf("%w: %s listed after %s, resolutions must go from finest to coarsest",
				ErrInvalidPolicy, s.Resolution, prev.Resolution)
		}
		if s.MaxStaleness < prev.MaxStaleness {
			return fmt.Errorf("%w: staleness bound for %s (%s) is below %s (%s)",
				ErrInvalidPolicy, s.Resolution, s.MaxStaleness, prev.Resolution, prev.MaxStaleness)
		}
	}
	return nil
}

// Resolutions returns the policy resolutions in precedence order.
func (p Policy) Resolutions() []domain.Resolution {
	out := make([]domain.Resolution, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Resolution
	}
	return out
}
