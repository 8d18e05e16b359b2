// Package bootstrap wires configuration into stores and a ready orchestrator.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tweet-price-lab/internal/alignment"
	"tweet-price-lab/internal/config"
	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/orchestrator"
	"tweet-price-lab/internal/storage"
	chstore "tweet-price-lab/internal/storage/clickhouse"
	"tweet-price-lab/internal/storage/memory"
	"tweet-price-lab/internal/storage/migrations"
	pgstore "tweet-price-lab/internal/storage/postgres"
	"tweet-price-lab/internal/storage/rediscache"
	"tweet-price-lab/internal/verification"
)

// Stores holds every store a run needs.
type Stores struct {
	Assets  storage.AssetStore
	Posts   storage.PostStore
	Candles storage.CandleStore

	// Results always holds the latest analyses in process; Sink also
	// publishes them to Redis when configured.
	Results *memory.ResultStore
	Sink    storage.ResultSink

	closers []func()
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores creates the configured backend. The sql backend applies the
// embedded migrations before returning.
func OpenStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Stores, error) {
	stores := &Stores{Results: memory.NewResultStore()}

	switch cfg.Storage.Backend {
	case "memory":
		stores.Assets = memory.NewAssetStore()
		stores.Posts = memory.NewPostStore()
		stores.Candles = memory.NewCandleStore()
	case "sql":
		if err := openSQL(ctx, cfg, stores); err != nil {
			stores.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: storage backend %q", config.ErrInvalidConfig, cfg.Storage.Backend)
	}

	stores.Sink = stores.Results
	if cfg.Redis.Addr != "" {
		client, err := rediscache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			stores.Close()
			return nil, err
		}
		stores.closers = append(stores.closers, func() { _ = client.Close() })
		stores.Sink = FanoutSink{stores.Results, rediscache.NewResultCache(client, cfg.Redis.TTL)}
	}

	logger.WithFields(logrus.Fields{
		"backend": cfg.Storage.Backend,
		"redis":   cfg.Redis.Addr != "",
	}).Info("stores opened")
	return stores, nil
}

func openSQL(ctx context.Context, cfg *config.Config, stores *Stores) error {
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresURL)
	if err != nil {
		return err
	}
	stores.closers = append(stores.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.closers = append(stores.closers, func() { _ = conn.Close() })

	stores.Assets = pgstore.NewAssetStore(pool)
	stores.Posts = pgstore.NewPostStore(pool)
	stores.Candles = chstore.NewCandleStore(conn)
	return nil
}

// FanoutSink publishes to every sink in order. All sinks are attempted;
// the joined error reports each one that failed.
type FanoutSink []storage.ResultSink

// Put implements storage.ResultSink.
func (f FanoutSink) Put(ctx context.Context, a *domain.AssetAnalysis) error {
	var errs []error
	for _, s := range f {
		if err := s.Put(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ storage.ResultSink = FanoutSink(nil)

// Settings converts the analysis sections of cfg.
func Settings(cfg *config.Config) (orchestrator.Settings, error) {
	policy, err := cfg.LookupPolicy()
	if err != nil {
		return orchestrator.Settings{}, err
	}
	ranges, err := cfg.RangeResolutions()
	if err != nil {
		return orchestrator.Settings{}, err
	}
	return orchestrator.Settings{
		Clustering:       cfg.ClusteringOptions(),
		Lookup:           policy,
		QuietMinGap:      cfg.Quiet.MinGap,
		RangeResolutions: ranges,
		Stats:            cfg.StatsConfig(),
	}, nil
}

// NewOrchestrator builds an orchestrator over stores. Overrides are read
// from cfg.Run.OverridesPath when set.
func NewOrchestrator(cfg *config.Config, stores *Stores, assetIDs []string, logger *logrus.Logger, metrics *observability.Metrics) (*orchestrator.Orchestrator, error) {
	return newOrchestrator(cfg, stores, stores.Sink, assetIDs, logger, metrics)
}

// NewReplayVerifier builds a verifier whose replays read the same stores but
// publish nothing, checked against stores.Results.
func NewReplayVerifier(cfg *config.Config, stores *Stores, assetIDs []string, logger *logrus.Logger) (*verification.ReplayVerifier, error) {
	replay, err := newOrchestrator(cfg, stores, nil, assetIDs, logger, nil)
	if err != nil {
		return nil, err
	}
	return verification.NewReplayVerifier(replay, stores.Results), nil
}

func newOrchestrator(cfg *config.Config, stores *Stores, sink storage.ResultSink, assetIDs []string, logger *logrus.Logger, metrics *observability.Metrics) (*orchestrator.Orchestrator, error) {
	settings, err := Settings(cfg)
	if err != nil {
		return nil, err
	}
	overrides, err := alignment.LoadOverrides(cfg.Run.OverridesPath)
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		logger.WithField("count", len(overrides)).Info("overrides loaded")
	}

	return orchestrator.New(orchestrator.Options{
		AssetStore:  stores.Assets,
		PostStore:   stores.Posts,
		Candles:     stores.Candles,
		Sink:        sink,
		Settings:    settings,
		Overrides:   overrides,
		AssetIDs:    assetIDs,
		Concurrency: cfg.Run.Concurrency,
		Logger:      logger,
		Metrics:     metrics,
	}), nil
}
