package alignment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/lookup"
	"tweet-price-lab/internal/storage/memory"
)

const (
	hourMs = int64(3600 * 1000)
	t0     = int64(1_700_000_000_000) / hourMs * hourMs
)

type stubResolver map[int64]float64

func (s stubResolver) Resolve(_ context.Context, _ string, target int64) (domain.PriceLookup, error) {
	p, ok := s[target]
	if !ok {
		return domain.PriceLookup{}, nil
	}
	res := domain.Resolution1m
	return domain.PriceLookup{Price: &p, Resolution: &res, CandleTimestampMs: &target}, nil
}

func event(ts int64) *domain.ClusteredEvent {
	return &domain.ClusteredEvent{
		EventID:        "e1",
		AssetID:        "a1",
		AnchorPostID:   "p1",
		MemberPostIDs:  []string{"p1"},
		EventTimestamp: ts,
		ClusterSize:    1,
	}
}

func TestAlign_AllPricesPresent(t *testing.T) {
	r := stubResolver{t0: 2.0, t0 + hourMs: 2.5, t0 + 24*hourMs: 1.0}

	got, err := NewAligner(r, 0).Align(context.Background(), event(t0))
	require.NoError(t, err)

	require.NotNil(t, got.PriceAtEvent)
	assert.Equal(t, 2.0, *got.PriceAtEvent)
	require.NotNil(t, got.Change1hPct)
	assert.InDelta(t, 25.0, *got.Change1hPct, 1e-9)
	require.NotNil(t, got.Change24hPct)
	assert.InDelta(t, -50.0, *got.Change24hPct, 1e-9)
	assert.Equal(t, domain.Resolution1m, *got.ResolutionAtEvent)
	assert.Equal(t, "e1", got.EventID)
}

func TestAlign_MissingBaseYieldsAbsentChanges(t *testing.T) {
	r := stubResolver{t0 + hourMs: 2.5, t0 + 24*hourMs: 1.0}

	got, err := NewAligner(r, 0).Align(context.Background(), event(t0))
	require.NoError(t, err)

	assert.Nil(t, got.PriceAtEvent)
	assert.NotNil(t, got.PricePlus1h)
	assert.Nil(t, got.Change1hPct, "change must be absent, never zero, without a base price")
	assert.Nil(t, got.Change24hPct)
}

func TestAlign_ZeroBaseYieldsAbsentChanges(t *testing.T) {
	r := stubResolver{t0: 0, t0 + hourMs: 2.5}

	got, err := NewAligner(r, 0).Align(context.Background(), event(t0))
	require.NoError(t, err)

	require.NotNil(t, got.PriceAtEvent)
	assert.Nil(t, got.Change1hPct)
	assert.Nil(t, got.Change24hPct)
}

func TestAlign_MissingTargetOnlyDropsThatChange(t *testing.T) {
	r := stubResolver{t0: 2.0, t0 + hourMs: 3.0}

	got, err := NewAligner(r, 0).Align(context.Background(), event(t0))
	require.NoError(t, err)

	assert.NotNil(t, got.Change1hPct)
	assert.Nil(t, got.PricePlus24h)
	assert.Nil(t, got.Change24hPct)
	assert.Nil(t, got.ResolutionPlus24h)
}

func TestAlign_TargetsAfterAsOfAreAbsent(t *testing.T) {
	r := stubResolver{t0: 2.0, t0 + hourMs: 3.0, t0 + 24*hourMs: 4.0}

	got, err := NewAligner(r, t0+2*hourMs).Align(context.Background(), event(t0))
	require.NoError(t, err)

	assert.NotNil(t, got.PricePlus1h)
	assert.Nil(t, got.PricePlus24h)
}

func TestAlign_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCandleStore()
	var candles []*domain.Candle
	for i := int64(0); i < 48; i++ {
		candles = append(candles, &domain.Candle{
			AssetID: "a1", Resolution: domain.Resolution1h, TimestampMs: t0 + i*hourMs, Close: 1 + float64(i)/10,
		})
	}
	require.NoError(t, store.InsertBulk(ctx, candles))

	aligner := NewAligner(lookup.NewResolver(store, lookup.DefaultPolicy()), 0)
	events := []*domain.ClusteredEvent{event(t0 + 30*60*1000), event(t0 + 5*hourMs)}

	first, err := aligner.AlignAll(ctx, events)
	require.NoError(t, err)
	second, err := aligner.AlignAll(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// hour candle at t0 covers t0+30m
	require.NotNil(t, first[0].PriceAtEvent)
	assert.Equal(t, 1.0, *first[0].PriceAtEvent)
	assert.Equal(t, domain.Resolution1h, *first[0].ResolutionAtEvent)
	assert.False(t, first[0].StaleAtEvent)
}

type errResolver struct{}

func (errResolver) Resolve(context.Context, string, int64) (domain.PriceLookup, error) {
	return domain.PriceLookup{}, errors.New("store down")
}

func TestAlignAll_PropagatesResolverError(t *testing.T) {
	_, err := NewAligner(errResolver{}, 0).AlignAll(context.Background(), []*domain.ClusteredEvent{event(t0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "align event e1")
}

func TestAlign_DoesNotShareMemberSlice(t *testing.T) {
	ev := event(t0)
	got, err := NewAligner(stubResolver{}, 0).Align(context.Background(), ev)
	require.NoError(t, err)

	got.MemberPostIDs[0] = "mutated"
	assert.Equal(t, "p1", ev.MemberPostIDs[0])
}
