package storage

import (
	"context"

	"tweet-price-lab/internal/domain"
)

// AssetStore provides access to assets storage.
type AssetStore interface {
	// Insert adds a new asset. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, a *domain.Asset) error

	// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Asset, error)

	// GetAll retrieves all assets, ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.Asset, error)
}

// PostStore provides access to posts storage.
type PostStore interface {
	// InsertBulk adds multiple posts atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, posts []*domain.Post) error

	// GetByAuthor retrieves all posts of an author, ordered by timestamp ASC, id ASC.
	// Author matching is case-insensitive.
	GetByAuthor(ctx context.Context, author string) ([]*domain.Post, error)

	// GetByTimeRange retrieves posts of an author within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, author string, start, end int64) ([]*domain.Post, error)
}

// CandleReader is the read-only view of candles used by the analysis core.
type CandleReader interface {
	// GetLatestAtOrBefore retrieves the latest candle with timestamp <= ts.
	// Returns ErrNotFound if none exists.
	GetLatestAtOrBefore(ctx context.Context, assetID string, res domain.Resolution, ts int64) (*domain.Candle, error)

	// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, assetID string, res domain.Resolution, start, end int64) ([]*domain.Candle, error)
}

// CandleStore provides access to candles storage.
type CandleStore interface {
	CandleReader

	// InsertBulk adds multiple candles. Fails entire batch on duplicate (asset_id, resolution, timestamp_ms).
	InsertBulk(ctx context.Context, candles []*domain.Candle) error
}

// ResultSink receives finished per-asset analyses. Results are replaced wholesale.
type ResultSink interface {
	Put(ctx context.Context, a *domain.AssetAnalysis) error
}

// ResultReader returns the latest published analysis of an asset.
type ResultReader interface {
	// Get returns ErrNotFound if the asset has no published analysis.
	Get(ctx context.Context, assetID string) (*domain.AssetAnalysis, error)
}
