package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage/memory"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(7)
	b := Generate(7)
	assert.Equal(t, a, b)

	c := Generate(8)
	assert.NotEqual(t, a.Posts, c.Posts)
}

func TestGenerate_Shape(t *testing.T) {
	ds := Generate(DefaultSeed)

	require.Len(t, ds.Assets, len(specs))
	assert.NotEmpty(t, ds.Posts)

	founders := make(map[string]bool)
	for _, a := range ds.Assets {
		founders[a.FounderHandle] = true
	}

	byAuthor := make(map[string][]*domain.Post)
	for _, p := range ds.Posts {
		require.True(t, founders[p.Author], "post %s by unknown author %s", p.ID, p.Author)
		byAuthor[p.Author] = append(byAuthor[p.Author], p)

		day := int((p.TimestampMs - StartMs) / dayMs)
		assert.False(t, day >= quietFrom && day < quietTo, "post %s inside the quiet window", p.ID)
	}
	for author, posts := range byAuthor {
		assert.NoError(t, domain.ValidatePosts(posts), author)
	}

	var hourly, minute int
	for _, c := range ds.Candles {
		assert.Positive(t, c.Close)
		assert.GreaterOrEqual(t, c.High, c.Low)
		switch c.Resolution {
		case domain.Resolution1h:
			hourly++
		case domain.Resolution1m:
			minute++
		}
	}
	assert.Equal(t, len(specs)*Days*24, hourly)
	assert.Equal(t, len(specs)*minuteDays*24*60, minute)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	assets := memory.NewAssetStore()
	posts := memory.NewPostStore()
	candles := memory.NewCandleStore()

	ds, err := Load(ctx, assets, posts, candles)
	require.NoError(t, err)

	all, err := assets.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(ds.Assets))

	for _, a := range ds.Assets {
		daily, err := candles.GetByTimeRange(ctx, a.ID, domain.Resolution1d, StartMs, AsOfMs)
		require.NoError(t, err)
		assert.Len(t, daily, Days, a.ID)

		// The daily close is the close of the day's last hour
		lastHour, err := candles.GetLatestAtOrBefore(ctx, a.ID, domain.Resolution1h, StartMs+dayMs-1)
		require.NoError(t, err)
		assert.Equal(t, lastHour.Close, daily[0].Close)
	}

	// A second load collides with the first
	_, err = Load(ctx, assets, posts, candles)
	assert.Error(t, err)
}
