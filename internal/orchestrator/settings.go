package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"tweet-price-lab/internal/clustering"
	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/lookup"
	"tweet-price-lab/internal/stats"
)

// ErrInvalidSettings is returned by Run before any asset is processed.
var ErrInvalidSettings = errors.New("invalid run settings")

// Settings are the analysis parameters shared by every asset of a run.
type Settings struct {
	Clustering       clustering.Options
	Lookup           lookup.Policy
	QuietMinGap      time.Duration
	RangeResolutions []domain.Resolution // scanned for during-gap prices
	DailyResolutions []domain.Resolution // tried in order for the daily series; nil uses 1d, 1h, 1m
	Stats            stats.Config
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Clustering:       clustering.DefaultOptions(),
		Lookup:           lookup.DefaultPolicy(),
		QuietMinGap:      72 * time.Hour,
		RangeResolutions: []domain.Resolution{domain.Resolution1h, domain.Resolution1d},
		Stats:            stats.DefaultConfig(),
	}
}

// Validate rejects settings that would yield partially correct output.
func (s Settings) Validate() error {
	if err := s.Clustering.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.Lookup.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if s.QuietMinGap <= 0 {
		return fmt.Errorf("%w: quiet min gap must be positive, got %s", ErrInvalidSettings, s.QuietMinGap)
	}
	if len(s.RangeResolutions) == 0 {
		return fmt.Errorf("%w: no quiet range resolutions", ErrInvalidSettings)
	}
	for _, res := range append(append([]domain.Resolution(nil), s.RangeResolutions...), s.DailyResolutions...) {
		if res.Duration() == 0 {
			return fmt.Errorf("%w: unknown resolution %q", ErrInvalidSettings, res)
		}
	}
	if err := s.Stats.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}
