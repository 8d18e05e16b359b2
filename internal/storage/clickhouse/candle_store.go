package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// Reads use FINAL so ReplacingMergeTree duplicates never surface.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

const candleColumns = `asset_id, resolution, timestamp_ms, open, high, low, close, volume`

// InsertBulk adds multiple candles. Fails entire batch on duplicate (asset_id, resolution, timestamp_ms).
func (s *CandleStore) InsertBulk(ctx context.Context, candles []*domain.Candle) (err error) {
	if len(candles) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_candles", start, err) }(time.Now())

	// Check for intra-batch duplicates and group by series for the existing-row check
	type series struct {
		assetID    string
		resolution domain.Resolution
	}
	type key struct {
		series
		timestampMs int64
	}
	seen := make(map[key]struct{}, len(candles))
	bounds := make(map[series][2]int64)
	for _, c := range candles {
		if c == nil || c.AssetID == "" || c.Resolution.Duration() == 0 {
			return storage.ErrInvalidInput
		}
		sk := series{c.AssetID, c.Resolution}
		k := key{sk, c.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}

		b, ok := bounds[sk]
		if !ok {
			b = [2]int64{c.TimestampMs, c.TimestampMs}
		}
		b[0] = min(b[0], c.TimestampMs)
		b[1] = max(b[1], c.TimestampMs)
		bounds[sk] = b
	}

	// Check for duplicates against existing rows, one range query per series
	for sk, b := range bounds {
		existing, err := s.GetByTimeRange(ctx, sk.assetID, sk.resolution, b[0], b[1])
		if err != nil {
			return fmt.Errorf("check existing candles: %w", err)
		}
		for _, c := range existing {
			if _, clash := seen[key{sk, c.TimestampMs}]; clash {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO candles (`+candleColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			c.AssetID, string(c.Resolution), c.TimestampMs,
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetLatestAtOrBefore retrieves the latest candle with timestamp <= ts.
func (s *CandleStore) GetLatestAtOrBefore(ctx context.Context, assetID string, res domain.Resolution, ts int64) (c *domain.Candle, err error) {
	defer func(start time.Time) { observe("latest_candle", start, err) }(time.Now())

	query := `
		SELECT ` + candleColumns + `
		FROM candles FINAL
		WHERE asset_id = ? AND resolution = ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	var out domain.Candle
	var resolution string
	err = s.conn.QueryRow(ctx, query, assetID, string(res), ts).Scan(
		&out.AssetID, &resolution, &out.TimestampMs,
		&out.Open, &out.High, &out.Low, &out.Close, &out.Volume,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query latest candle: %w", err)
	}
	out.Resolution = domain.Resolution(resolution)
	return &out, nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered by timestamp ASC.
func (s *CandleStore) GetByTimeRange(ctx context.Context, assetID string, res domain.Resolution, start, end int64) (candles []*domain.Candle, err error) {
	defer func(began time.Time) { observe("candles_by_time_range", began, err) }(time.Now())

	query := `
		SELECT ` + candleColumns + `
		FROM candles FINAL
		WHERE asset_id = ? AND resolution = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID, string(res), start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]*domain.Candle, error) {
	var candles []*domain.Candle

	for rows.Next() {
		var c domain.Candle
		var resolution string

		err := rows.Scan(
			&c.AssetID, &resolution, &c.TimestampMs,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.Resolution = domain.Resolution(resolution)
		candles = append(candles, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), err)
}
