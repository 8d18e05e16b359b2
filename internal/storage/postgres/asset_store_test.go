package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

var assetColumns = []string{"id", "symbol", "name", "founder_handle", "launched_at", "created_at"}

func TestAssetStore_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM assets")).
		WithArgs("pump").
		WillReturnRows(pgxmock.NewRows(assetColumns).
			AddRow("pump", "PUMP", "Pump", "founder", int64(1690000000000), int64(1700000000000)))

	store := NewAssetStore(mock)
	a, err := store.GetByID(context.Background(), "pump")
	require.NoError(t, err)

	assert.Equal(t, "PUMP", a.Symbol)
	assert.Equal(t, "founder", a.FounderHandle)
	assert.Equal(t, int64(1690000000000), a.LaunchedAtMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetStore_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM assets")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	store := NewAssetStore(mock)
	_, err = store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAssetStore_GetAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id ASC")).
		WillReturnRows(pgxmock.NewRows(assetColumns).
			AddRow("a", "A", "Alpha", "alice", int64(0), int64(1)).
			AddRow("b", "B", "Beta", "bob", int64(0), int64(2)))

	store := NewAssetStore(mock)
	assets, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "bob", assets[1].FounderHandle)
}

func TestAssetStore_Insert_NormalizesHandle(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO assets").
		WithArgs("pump", "PUMP", "Pump", "founder", int64(0)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewAssetStore(mock)
	err = store.Insert(context.Background(), &domain.Asset{ID: "pump", Symbol: "PUMP", Name: "Pump", FounderHandle: "@Founder"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetStore_Integration(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAssetStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.Asset{ID: "b", Symbol: "B", Name: "Beta", FounderHandle: "bob"}))
	require.NoError(t, store.Insert(ctx, &domain.Asset{ID: "a", Symbol: "A", Name: "Alpha", FounderHandle: "@Alice", LaunchedAtMs: 42}))

	err := store.Insert(ctx, &domain.Asset{ID: "a", Symbol: "A2", Name: "Dup", FounderHandle: "x"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	a, err := store.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.FounderHandle)
	assert.Equal(t, int64(42), a.LaunchedAtMs)
	assert.Positive(t, a.CreatedAt)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	_, err = store.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
