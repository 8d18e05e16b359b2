// Package main runs one analysis over every registered asset and writes the report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tweet-price-lab/internal/bootstrap"
	"tweet-price-lab/internal/config"
	"tweet-price-lab/internal/fixtures"
	"tweet-price-lab/internal/logging"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: ./configs/config.yaml or ./config.yaml)")
	asOf := flag.String("as-of", "", "As-of time: Unix ms or RFC3339 (default: now, or the fixture end with -fixtures)")
	outputDir := flag.String("output-dir", "", "Output directory for report files (overrides run.report_dir)")
	assets := flag.String("assets", "", "Comma-separated asset ids (default: all)")
	useFixtures := flag.Bool("fixtures", false, "Load the deterministic demo dataset into memory stores")
	verify := flag.Bool("verify", false, "Replay the run and compare with the published analyses")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *useFixtures {
		cfg.Storage.Backend = "memory"
	}
	if *outputDir != "" {
		cfg.Run.ReportDir = *outputDir
	}
	if *verify {
		cfg.Run.Verify = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	asOfMs, err := parseAsOf(*asOf, *useFixtures)
	if err != nil {
		logger.Fatalf("Invalid -as-of: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	if *useFixtures {
		if _, err := fixtures.Load(ctx, stores.Assets, stores.Posts, stores.Candles); err != nil {
			logger.Fatalf("Failed to load fixtures: %v", err)
		}
	}

	orch, err := bootstrap.NewOrchestrator(cfg, stores, splitList(*assets), logger, observability.DefaultMetrics)
	if err != nil {
		logger.Fatalf("Failed to build orchestrator: %v", err)
	}

	p := pipeline.New(orch, stores.Assets, cfg.Run.ReportDir).WithLogger(logger)
	if cfg.Run.Verify {
		verifier, err := bootstrap.NewReplayVerifier(cfg, stores, splitList(*assets), logger)
		if err != nil {
			logger.Fatalf("Failed to build verifier: %v", err)
		}
		p.WithVerifier(verifier)
	}
	result, err := p.Run(ctx, asOfMs)
	if err != nil {
		logger.Fatalf("Pipeline error: %v", err)
	}

	fmt.Printf("Run %s (%s)\n", result.RunID, result.Status())
	fmt.Printf("  Analysed: %d\n", len(result.Analyses))
	fmt.Printf("  Failed:   %d\n", len(result.Failures))
	for _, e := range result.Errors() {
		fmt.Printf("    - %s\n", e)
	}
	if cfg.Run.ReportDir != "" {
		for _, f := range []string{pipeline.ReportFile, pipeline.EventsFile, pipeline.QuietPeriodsFile, pipeline.AnalysesFile} {
			fmt.Printf("  - %s/%s\n", cfg.Run.ReportDir, f)
		}
	}

	if result.Status() == orchestrator.StatusFailed {
		os.Exit(2)
	}
}

// parseAsOf accepts Unix milliseconds or RFC3339.
func parseAsOf(s string, useFixtures bool) (int64, error) {
	switch {
	case s == "" && useFixtures:
		return fixtures.AsOfMs, nil
	case s == "":
		return time.Now().UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("want Unix ms or RFC3339, got %q", s)
	}
	return t.UnixMilli(), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
