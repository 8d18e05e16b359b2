package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/storage"
)

// Runner re-executes an analysis. It must not publish its results.
type Runner interface {
	Run(ctx context.Context, asOfMs int64) (*orchestrator.RunResult, error)
}

// ReplayVerifier re-runs analyses at a fixed as-of and compares them with
// what was published.
type ReplayVerifier struct {
	runner  Runner
	results storage.ResultReader
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(runner Runner, results storage.ResultReader) *ReplayVerifier {
	return &ReplayVerifier{runner: runner, results: results}
}

// VerifyRun replays every asset as of asOfMs. Assets that fail on replay or
// have no published analysis are reported as divergent.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, asOfMs int64) (*VerificationReport, error) {
	replayed, err := v.runner.Run(ctx, asOfMs)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &VerificationReport{
		Results: make([]VerificationResult, 0, len(replayed.Analyses)+len(replayed.Failures)),
	}

	for _, a := range replayed.Analyses {
		stored, err := v.results.Get(ctx, a.AssetID)
		var result VerificationResult
		switch {
		case errors.Is(err, storage.ErrNotFound):
			result = errorResult(a.AssetID, "no published analysis")
		case err != nil:
			return nil, fmt.Errorf("load analysis %s: %w", a.AssetID, err)
		default:
			divergences := CompareAnalyses(stored, a)
			result = VerificationResult{AssetID: a.AssetID, Match: len(divergences) == 0, Divergences: divergences}
		}
		report.Results = append(report.Results, result)
	}

	// Record error as divergence
	for _, f := range replayed.Failures {
		report.Results = append(report.Results, errorResult(f.AssetID, f.Err.Error()))
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].AssetID < report.Results[j].AssetID
	})
	report.TotalAssets = len(report.Results)
	for _, r := range report.Results {
		if r.Match {
			report.MatchedAssets++
		} else {
			report.DivergentAssets++
		}
	}
	return report, nil
}

func errorResult(assetID, msg string) VerificationResult {
	return VerificationResult{
		AssetID:     assetID,
		Divergences: []FieldDivergence{{Field: "Error", Expected: nil, Actual: msg}},
	}
}
