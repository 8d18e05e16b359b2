// Package pipeline runs an analysis and writes its report files.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"tweet-price-lab/internal/logging"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/reporting"
	"tweet-price-lab/internal/storage"
	"tweet-price-lab/internal/verification"
)

// Output file names.
const (
	ReportFile       = "REPORT.md"
	EventsFile       = "events.csv"
	QuietPeriodsFile = "quiet_periods.csv"
	AnalysesFile     = "analyses.json"
)

// Runner is the part of the orchestrator the pipeline needs.
type Runner interface {
	Run(ctx context.Context, asOfMs int64) (*orchestrator.RunResult, error)
}

// Pipeline orchestrates analysis + report generation.
type Pipeline struct {
	runner     Runner
	assetStore storage.AssetStore
	checker    *SufficiencyChecker
	verifier   *verification.ReplayVerifier // optional
	outputDir  string // empty skips report files
	clock      func() time.Time
	logger     *logrus.Entry
}

// New creates a new pipeline.
func New(runner Runner, assetStore storage.AssetStore, outputDir string) *Pipeline {
	return &Pipeline{
		runner:     runner,
		assetStore: assetStore,
		checker:    NewSufficiencyChecker(),
		outputDir:  outputDir,
		clock:      func() time.Time { return time.Now().UTC() },
		logger:     logging.Discard().WithField("component", "pipeline"),
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// WithVerifier replays each run and adds the comparison to the data quality checks.
func (p *Pipeline) WithVerifier(v *verification.ReplayVerifier) *Pipeline {
	p.verifier = v
	return p
}

// WithLogger sets the logger.
func (p *Pipeline) WithLogger(logger *logrus.Logger) *Pipeline {
	p.logger = logger.WithField("component", "pipeline")
	return p
}

// Run executes the analysis and, when an output directory is set, writes:
// - REPORT.md
// - events.csv
// - quiet_periods.csv
// - analyses.json
func (p *Pipeline) Run(ctx context.Context, asOfMs int64) (*orchestrator.RunResult, error) {
	result, err := p.runner.Run(ctx, asOfMs)
	if err != nil {
		return nil, err
	}
	if p.outputDir == "" {
		return result, nil
	}

	report, err := p.buildReport(ctx, result)
	if err != nil {
		return nil, err
	}
	if err := p.write(report, result); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"run_id":     result.RunID,
		"output_dir": p.outputDir,
		"passed":     report.DataQuality.AllChecksPassed,
	}).Info("report written")
	return result, nil
}

func (p *Pipeline) buildReport(ctx context.Context, result *orchestrator.RunResult) (*reporting.Report, error) {
	assets, err := p.assetStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	symbols := make(map[string]string, len(assets))
	for _, a := range assets {
		symbols[a.ID] = a.Symbol
	}

	report := reporting.Build(p.clock(), result.Analyses, symbols)
	report.RunID, report.AsOfMs = result.RunID, result.AsOfMs
	report.Summary.TotalAssets = len(result.Analyses) + len(result.Failures)
	for _, f := range result.Failures {
		report.Missing = append(report.Missing, f.AssetID)
	}

	var replay *verification.VerificationReport
	if p.verifier != nil {
		replay, err = p.verifier.VerifyRun(ctx, result.AsOfMs)
		if err != nil {
			return nil, fmt.Errorf("verify run: %w", err)
		}
	}
	report.DataQuality = p.checker.Check(result, replay)
	return report, nil
}

func (p *Pipeline) write(report *reporting.Report, result *orchestrator.RunResult) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	eventsCSV, err := reporting.RenderEventsCSV(report)
	if err != nil {
		return fmt.Errorf("render events: %w", err)
	}
	quietCSV, err := reporting.RenderQuietPeriodsCSV(report)
	if err != nil {
		return fmt.Errorf("render quiet periods: %w", err)
	}
	analyses, err := json.MarshalIndent(result.Analyses, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analyses: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ReportFile, []byte(reporting.RenderMarkdown(report))},
		{EventsFile, []byte(eventsCSV)},
		{QuietPeriodsFile, []byte(quietCSV)},
		{AnalysesFile, analyses},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(p.outputDir, f.name), f.data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}
