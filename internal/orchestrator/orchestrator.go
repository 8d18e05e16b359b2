// Package orchestrator runs the per-asset analysis.
// Per asset: posts → clustering → alignment → overrides → quiet periods → statistics → sink
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tweet-price-lab/internal/alignment"
	"tweet-price-lab/internal/clustering"
	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/logging"
	"tweet-price-lab/internal/lookup"
	"tweet-price-lab/internal/normalization"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/quiet"
	"tweet-price-lab/internal/stats"
	"tweet-price-lab/internal/storage"
)

// Run statuses reported to metrics.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Orchestrator coordinates one analysis run over all registered assets.
// Workers share only read-only inputs; each asset's output is owned by its worker.
type Orchestrator struct {
	// Stores
	assetStore storage.AssetStore
	postStore  storage.PostStore
	candles    storage.CandleReader
	sink       storage.ResultSink

	settings    Settings
	overrides   []alignment.Override
	assetIDs    map[string]struct{}
	concurrency int

	logger  *logrus.Entry
	metrics *observability.Metrics
	newID   func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	AssetStore storage.AssetStore
	PostStore  storage.PostStore
	Candles    storage.CandleReader

	// Optional destination for finished analyses
	Sink storage.ResultSink

	Settings  Settings
	Overrides []alignment.Override

	// AssetIDs restricts the run to these assets; empty means all
	AssetIDs []string

	// Concurrency bounds the number of assets analysed at once; < 1 means 1
	Concurrency int

	Logger  *logrus.Logger         // nil discards
	Metrics *observability.Metrics // nil records nothing
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var ids map[string]struct{}
	if len(opts.AssetIDs) > 0 {
		ids = make(map[string]struct{}, len(opts.AssetIDs))
		for _, id := range opts.AssetIDs {
			ids[id] = struct{}{}
		}
	}

	return &Orchestrator{
		assetStore:  opts.AssetStore,
		postStore:   opts.PostStore,
		candles:     opts.Candles,
		sink:        opts.Sink,
		settings:    opts.Settings,
		overrides:   opts.Overrides,
		assetIDs:    ids,
		concurrency: concurrency,
		logger:      logger.WithField("component", "orchestrator"),
		metrics:     opts.Metrics,
		newID:       uuid.NewString,
	}
}

// AssetFailure records why one asset produced no analysis.
type AssetFailure struct {
	AssetID string
	Err     error
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID    string
	AsOfMs   int64
	Duration time.Duration

	// Sorted by asset id
	Analyses []*domain.AssetAnalysis
	Failures []AssetFailure

	// Override targets that matched no event in any asset
	UnmatchedOverrides []string
}

// Status summarises the run for metrics and logs.
func (r *RunResult) Status() string {
	switch {
	case len(r.Failures) == 0:
		return StatusSuccess
	case len(r.Analyses) == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Errors renders failures and unmatched overrides as report lines.
func (r *RunResult) Errors() []string {
	out := make([]string, 0, len(r.Failures)+len(r.UnmatchedOverrides))
	for _, f := range r.Failures {
		out = append(out, fmt.Sprintf("asset %s: %v", f.AssetID, f.Err))
	}
	for _, id := range r.UnmatchedOverrides {
		out = append(out, fmt.Sprintf("override for unknown event %s", id))
	}
	return out
}

// outcome is the private result slot of one worker.
type outcome struct {
	analysis *domain.AssetAnalysis
	aligned  []*domain.AlignedEvent // before overrides
	err      error
}

// Run analyses every selected asset as of asOfMs.
// Invalid settings or overrides abort before any asset is touched. A failing
// asset is recorded in RunResult.Failures and does not stop the others. Once
// ctx is done, assets not yet started are recorded as failures and never
// reach the sink.
func (o *Orchestrator) Run(ctx context.Context, asOfMs int64) (*RunResult, error) {
	if err := o.settings.Validate(); err != nil {
		return nil, err
	}
	if err := validateOverrides(o.overrides); err != nil {
		return nil, err
	}
	if asOfMs <= 0 {
		return nil, fmt.Errorf("%w: as-of timestamp must be positive, got %d", ErrInvalidSettings, asOfMs)
	}

	start := time.Now()
	runID := o.newID()
	log := o.logger.WithFields(logrus.Fields{"run_id": runID, "as_of_ms": asOfMs})

	assets, err := o.loadAssets(ctx)
	if err != nil {
		o.metrics.RecordRun(StatusFailed, time.Since(start).Seconds(), time.Now().Unix())
		return nil, fmt.Errorf("load assets: %w", err)
	}
	log.WithField("assets", len(assets)).Info("analysis run started")

	// Reads are clamped to asOfMs so every asset sees the same candle tail
	snapshot := storage.NewSnapshotReader(o.candles, asOfMs)

	outcomes := make([]outcome, len(assets))
	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, a := range assets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				o.metrics.RecordAsset(StatusFailed, 0)
				outcomes[i] = outcome{err: fmt.Errorf("not started: %w", err)}
				return nil
			}

			began := time.Now()
			analysis, aligned, err := o.analyseAsset(ctx, snapshot, runID, asOfMs, a)
			if err == nil && o.sink != nil {
				err = o.publish(ctx, analysis)
			}

			status := StatusSuccess
			alog := log.WithField("asset_id", a.ID)
			if err != nil {
				status = StatusFailed
				alog.WithError(err).WithField("cause", FailureCause(err)).Warn("asset analysis failed")
			} else {
				alog.WithFields(logrus.Fields{
					"events":        len(analysis.Events),
					"quiet_periods": len(analysis.QuietPeriods),
				}).Debug("asset analysed")
			}
			o.metrics.RecordAsset(status, time.Since(began).Seconds())

			outcomes[i] = outcome{analysis: analysis, aligned: aligned, err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("analysis run interrupted")
	}

	result := &RunResult{RunID: runID, AsOfMs: asOfMs}
	var allAligned []*domain.AlignedEvent
	for i, oc := range outcomes {
		if oc.err != nil {
			result.Failures = append(result.Failures, AssetFailure{AssetID: assets[i].ID, Err: oc.err})
			continue
		}
		result.Analyses = append(result.Analyses, oc.analysis)
		allAligned = append(allAligned, oc.aligned...)
	}
	if len(o.overrides) > 0 {
		result.UnmatchedOverrides = alignment.Unmatched(allAligned, o.overrides)
		o.metrics.RecordOverrides(len(o.overrides)-len(result.UnmatchedOverrides), len(result.UnmatchedOverrides))
		for _, id := range result.UnmatchedOverrides {
			log.WithField("event_id", id).Warn("override matches no event")
		}
	}

	result.Duration = time.Since(start)
	o.metrics.RecordRun(result.Status(), result.Duration.Seconds(), time.Now().Unix())
	log.WithFields(logrus.Fields{
		"status":   result.Status(),
		"analysed": len(result.Analyses),
		"failed":   len(result.Failures),
		"duration": result.Duration.String(),
	}).Info("analysis run finished")

	return result, nil
}

func validateOverrides(overrides []alignment.Override) error {
	for i, ov := range overrides {
		if ov == nil {
			return fmt.Errorf("%w: override %d is nil", ErrInvalidSettings, i)
		}
		if err := ov.Validate(); err != nil {
			return fmt.Errorf("%w: override %d: %w", ErrInvalidSettings, i, err)
		}
	}
	return nil
}

// loadAssets returns the selected assets ordered by id.
func (o *Orchestrator) loadAssets(ctx context.Context) ([]*domain.Asset, error) {
	all, err := o.assetStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	selected := make([]*domain.Asset, 0, len(all))
	for _, a := range all {
		if o.assetIDs != nil {
			if _, ok := o.assetIDs[a.ID]; !ok {
				continue
			}
		}
		selected = append(selected, a)
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].ID < selected[j].ID })
	return selected, nil
}

// analyseAsset runs the full chain for one asset. The daily series loads
// concurrently with clustering and alignment.
func (o *Orchestrator) analyseAsset(ctx context.Context, candles storage.CandleReader, runID string, asOfMs int64, a *domain.Asset) (*domain.AssetAnalysis, []*domain.AlignedEvent, error) {
	posts, err := o.postStore.GetByTimeRange(ctx, a.FounderHandle, 0, asOfMs)
	if err != nil {
		return nil, nil, fmt.Errorf("load posts: %w", err)
	}
	if err := domain.ValidatePosts(posts); err != nil {
		return nil, nil, err
	}

	resolver := lookup.NewResolver(candles, o.settings.Lookup)
	aligner := alignment.NewAligner(resolver, asOfMs)
	detector := quiet.NewDetector(resolver, candles, o.settings.RangeResolutions)
	daily := normalization.NewRunner(candles, o.settings.DailyResolutions)

	g, gctx := errgroup.WithContext(ctx)

	var prices []domain.DailyPrice
	g.Go(func() error {
		var err error
		prices, err = daily.DailySeries(gctx, a.ID, 0, asOfMs)
		if err != nil {
			return fmt.Errorf("daily series: %w", err)
		}
		return nil
	})

	var (
		aligned []*domain.AlignedEvent
		kept    []*domain.AlignedEvent
		periods []*domain.QuietPeriod
	)
	g.Go(func() error {
		events := clustering.Cluster(a.ID, posts, o.settings.Clustering)
		o.recordClustering(len(posts), events)

		var err error
		aligned, err = aligner.AlignAll(gctx, events)
		if err != nil {
			return fmt.Errorf("align events: %w", err)
		}
		kept = alignment.ApplyOverrides(aligned, o.overrides)
		o.recordLookups(kept)

		periods, err = detector.Detect(gctx, a.ID, clusteredOf(kept), o.settings.QuietMinGap, asOfMs)
		if err != nil {
			return fmt.Errorf("detect quiet periods: %w", err)
		}
		for _, q := range periods {
			o.metrics.RecordQuietPeriod(q.IsOngoing)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	timestamps := make([]int64, len(kept))
	for i, ev := range kept {
		timestamps[i] = ev.EventTimestamp
	}
	dailyResult := stats.CompareDays(prices, timestamps, o.settings.Stats)
	correlation := stats.RollingCorrelation(prices, timestamps, o.settings.Stats)
	o.metrics.RecordStatistic("daily", string(dailyResult.Status))
	o.metrics.RecordStatistic("correlation", string(correlation.Status))

	return &domain.AssetAnalysis{
		RunID:        runID,
		AssetID:      a.ID,
		Author:       domain.NormalizeHandle(a.FounderHandle),
		AsOfMs:       asOfMs,
		PostCount:    len(posts),
		Events:       kept,
		QuietPeriods: periods,
		DailyPrices:  prices,
		Daily:        dailyResult,
		Correlation:  correlation,
		Impact:       stats.SummarizeImpact(kept),
	}, aligned, nil
}

func (o *Orchestrator) publish(ctx context.Context, a *domain.AssetAnalysis) error {
	err := o.sink.Put(ctx, a)
	o.metrics.RecordResultEmitted(err)
	if err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

func (o *Orchestrator) recordClustering(posts int, events []*domain.ClusteredEvent) {
	var thread int
	for _, ev := range events {
		if ev.FormedViaThread {
			thread++
		}
	}
	o.metrics.RecordClustering(posts, len(events)-thread, thread)
}

func (o *Orchestrator) recordLookups(events []*domain.AlignedEvent) {
	if o.metrics == nil {
		return
	}
	for _, ev := range events {
		o.metrics.RecordLookup("event", ev.PriceAtEvent != nil)
		o.metrics.RecordLookup("1h", ev.PricePlus1h != nil)
		o.metrics.RecordLookup("24h", ev.PricePlus24h != nil)
	}
}

// clusteredOf strips alignment data so excluded events drop out of gap detection too.
func clusteredOf(events []*domain.AlignedEvent) []*domain.ClusteredEvent {
	out := make([]*domain.ClusteredEvent, len(events))
	for i, ev := range events {
		c := ev.ClusteredEvent
		out[i] = &c
	}
	return out
}

// FailureCause classifies an asset failure for logs.
func FailureCause(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedPost):
		return "malformed_posts"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
