package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	db DB
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(db DB) *AssetStore {
	return &AssetStore{db: db}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Insert adds a new asset. Returns ErrDuplicateKey if id exists.
func (s *AssetStore) Insert(ctx context.Context, a *domain.Asset) (err error) {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("insert_asset", start, err) }(time.Now())

	query := `
		INSERT INTO assets (id, symbol, name, founder_handle, launched_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.Exec(ctx, query,
		a.ID,
		a.Symbol,
		a.Name,
		domain.NormalizeHandle(a.FounderHandle),
		a.LaunchedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// GetByID retrieves an asset by its ID. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByID(ctx context.Context, id string) (a *domain.Asset, err error) {
	defer func(start time.Time) { observe("get_asset", start, err) }(time.Now())

	query := `
		SELECT id, symbol, name, founder_handle, launched_at, created_at
		FROM assets
		WHERE id = $1
	`

	a, err = scanAsset(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by id: %w", err)
	}
	return a, nil
}

// GetAll retrieves all assets, ordered by id ASC.
func (s *AssetStore) GetAll(ctx context.Context) (assets []*domain.Asset, err error) {
	defer func(start time.Time) { observe("get_assets", start, err) }(time.Now())

	query := `
		SELECT id, symbol, name, founder_handle, launched_at, created_at
		FROM assets
		ORDER BY id ASC
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get assets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}
	return assets, nil
}

// scanAsset scans a single row into an Asset.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	err := row.Scan(
		&a.ID,
		&a.Symbol,
		&a.Name,
		&a.FounderHandle,
		&a.LaunchedAtMs,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
