package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/fixtures"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/storage/memory"
	"tweet-price-lab/internal/verification"
)

func setupPipeline(t *testing.T, outputDir string) *Pipeline {
	t.Helper()
	ctx := context.Background()

	assets := memory.NewAssetStore()
	posts := memory.NewPostStore()
	candles := memory.NewCandleStore()
	if _, err := fixtures.Load(ctx, assets, posts, candles); err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		AssetStore:  assets,
		PostStore:   posts,
		Candles:     candles,
		Sink:        memory.NewResultStore(),
		Settings:    orchestrator.DefaultSettings(),
		Concurrency: 2,
	})

	fixedTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(orch, assets, outputDir).WithClock(func() time.Time { return fixedTime })
}

func TestPipeline_Run(t *testing.T) {
	tempDir := t.TempDir()
	p := setupPipeline(t, tempDir)

	result, err := p.Run(context.Background(), fixtures.AsOfMs)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Errors())
	}

	// Verify all files exist
	for _, f := range []string{ReportFile, EventsFile, QuietPeriodsFile, AnalysesFile} {
		if _, err := os.Stat(filepath.Join(tempDir, f)); os.IsNotExist(err) {
			t.Errorf("Expected file %s to exist", f)
		}
	}

	report, err := os.ReadFile(filepath.Join(tempDir, ReportFile))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"# Post Impact Report", "Generated: 2024-03-01T12:00:00Z", "## pump (PUMP)", "## Data Quality"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q", want)
		}
	}

	data, err := os.ReadFile(filepath.Join(tempDir, AnalysesFile))
	if err != nil {
		t.Fatalf("read analyses: %v", err)
	}
	var analyses []*domain.AssetAnalysis
	if err := json.Unmarshal(data, &analyses); err != nil {
		t.Fatalf("decode analyses: %v", err)
	}
	if len(analyses) != len(result.Analyses) {
		t.Errorf("analyses.json has %d entries, want %d", len(analyses), len(result.Analyses))
	}

	// Every fixture asset has the forced week-long gap
	for _, a := range result.Analyses {
		var long bool
		for _, q := range a.QuietPeriods {
			if q.GapDays() >= 7 {
				long = true
			}
		}
		if !long {
			t.Errorf("asset %s: expected a quiet period of at least 7 days", a.AssetID)
		}
	}
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	var first []byte
	for run := 0; run < 2; run++ {
		dir := t.TempDir()
		if _, err := setupPipeline(t, dir).Run(context.Background(), fixtures.AsOfMs); err != nil {
			t.Fatalf("Run %d failed: %v", run, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, EventsFile))
		if err != nil {
			t.Fatalf("read events: %v", err)
		}
		if first == nil {
			first = data
			continue
		}
		if string(data) != string(first) {
			t.Fatalf("Run %d: events.csv differs", run)
		}
	}
}

func TestPipeline_Run_NoOutputDir(t *testing.T) {
	p := setupPipeline(t, "")
	result, err := p.Run(context.Background(), fixtures.AsOfMs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Analyses) == 0 {
		t.Error("expected analyses")
	}
}

func TestPipeline_Run_WithVerifier(t *testing.T) {
	ctx := context.Background()
	assets := memory.NewAssetStore()
	posts := memory.NewPostStore()
	candles := memory.NewCandleStore()
	if _, err := fixtures.Load(ctx, assets, posts, candles); err != nil {
		t.Fatalf("Failed to load fixtures: %v", err)
	}

	results := memory.NewResultStore()
	opts := orchestrator.Options{
		AssetStore: assets,
		PostStore:  posts,
		Candles:    candles,
		Sink:       results,
		Settings:   orchestrator.DefaultSettings(),
	}
	orch := orchestrator.New(opts)
	opts.Sink = nil
	replay := orchestrator.New(opts)

	dir := t.TempDir()
	p := New(orch, assets, dir).WithVerifier(verification.NewReplayVerifier(replay, results))
	if _, err := p.Run(ctx, fixtures.AsOfMs); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), "| Replay matches | all assets | 3/3 | PASS |") {
		t.Errorf("report missing passing replay check:\n%s", report)
	}
}

type stubRunner struct {
	result *orchestrator.RunResult
	err    error
}

func (s stubRunner) Run(context.Context, int64) (*orchestrator.RunResult, error) {
	return s.result, s.err
}

func TestPipeline_Run_RunnerError(t *testing.T) {
	dir := t.TempDir()
	p := New(stubRunner{err: orchestrator.ErrInvalidSettings}, memory.NewAssetStore(), dir)

	if _, err := p.Run(context.Background(), 1); !errors.Is(err, orchestrator.ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ReportFile)); !os.IsNotExist(err) {
		t.Error("report must not be written when the run fails")
	}
}

func TestSufficiencyChecker(t *testing.T) {
	price := 1.0
	ok := &domain.AssetAnalysis{
		AssetID: "a",
		Events: []*domain.AlignedEvent{
			{PriceAtEvent: &price}, {PriceAtEvent: &price}, {PriceAtEvent: &price}, {PriceAtEvent: &price},
			{PriceAtEvent: &price}, {PriceAtEvent: &price}, {PriceAtEvent: &price}, {PriceAtEvent: &price},
			{PriceAtEvent: &price}, {},
		},
		Daily:       &domain.DailyComparisonResult{Status: domain.StatusOK},
		Correlation: &domain.CorrelationResult{Status: domain.StatusOK},
	}

	t.Run("all pass", func(t *testing.T) {
		dq := NewSufficiencyChecker().Check(&orchestrator.RunResult{Analyses: []*domain.AssetAnalysis{ok}}, nil)
		if !dq.AllChecksPassed {
			t.Errorf("expected all checks to pass: %+v", dq.SufficiencyChecks)
		}
		if got := dq.SufficiencyChecks[2].Actual; got != "90.0% (9/10)" {
			t.Errorf("coverage actual = %q", got)
		}
	})

	t.Run("failures and unmatched overrides", func(t *testing.T) {
		insufficient := &domain.AssetAnalysis{
			AssetID:     "b",
			Daily:       &domain.DailyComparisonResult{Status: domain.StatusInsufficientData},
			Correlation: &domain.CorrelationResult{Status: domain.StatusOK},
		}
		dq := NewSufficiencyChecker().Check(&orchestrator.RunResult{
			Analyses:           []*domain.AssetAnalysis{ok, insufficient},
			Failures:           []orchestrator.AssetFailure{{AssetID: "c", Err: domain.ErrMalformedPost}},
			UnmatchedOverrides: []string{"e9"},
		}, nil)
		if dq.AllChecksPassed {
			t.Fatal("expected checks to fail")
		}
		failed := map[string]bool{}
		for _, c := range dq.SufficiencyChecks {
			if !c.Pass {
				failed[c.Name] = true
			}
		}
		for _, name := range []string{"Failed assets", "Daily comparisons computed", "Unmatched overrides"} {
			if !failed[name] {
				t.Errorf("expected %q to fail", name)
			}
		}
		if failed["Correlations computed"] {
			t.Error("correlations were computed for every asset")
		}
		if len(dq.IntegrityErrors) != 2 {
			t.Errorf("IntegrityErrors = %v, want 2 entries", dq.IntegrityErrors)
		}
	})

	t.Run("empty run", func(t *testing.T) {
		dq := NewSufficiencyChecker().Check(&orchestrator.RunResult{}, nil)
		if dq.AllChecksPassed {
			t.Error("an empty run cannot pass")
		}
		if got := dq.SufficiencyChecks[2].Actual; got != "no events" {
			t.Errorf("coverage actual = %q", got)
		}
	})
}
