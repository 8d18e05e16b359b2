// Package fixtures seeds stores with a deterministic demo dataset.
package fixtures

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/normalization"
	"tweet-price-lab/internal/storage"
)

const (
	// StartMs is 2024-01-01T00:00:00Z.
	StartMs = int64(1704067200000)
	// Days of history generated per asset.
	Days = 60
	// DefaultSeed makes Load reproducible.
	DefaultSeed = 42

	minuteMs = int64(60 * 1000)
	hourMs   = 60 * minuteMs
	dayMs    = 24 * hourMs

	// Minute candles cover only the most recent days.
	minuteDays = 2
	// No posts in [quietFrom, quietTo) days, so every asset has one long gap.
	quietFrom = 30
	quietTo   = 37
)

// AsOfMs is the end of the generated window.
const AsOfMs = StartMs + Days*dayMs

// Dataset is the generated demo data.
type Dataset struct {
	Assets  []*domain.Asset
	Posts   []*domain.Post
	Candles []*domain.Candle // 1m and 1h; 1d is derived on load
}

type assetSpec struct {
	id, symbol, name, founder string
	startPrice                float64
	eventProb                 float64
}

var specs = []assetSpec{
	{id: "pump", symbol: "PUMP", name: "Pump", founder: "pumpdev", startPrice: 0.0042, eventProb: 0.4},
	{id: "glide", symbol: "GLD", name: "Glide", founder: "glidefounder", startPrice: 1.8, eventProb: 0.3},
	{id: "quietcoin", symbol: "QC", name: "Quiet Coin", founder: "quietbuilder", startPrice: 12.5, eventProb: 0.15},
}

// Generate builds the dataset for a seed. Equal seeds give equal datasets.
func Generate(seed uint64) *Dataset {
	ds := &Dataset{}
	for i, spec := range specs {
		rng := rand.New(rand.NewPCG(seed, uint64(i)))
		ds.Assets = append(ds.Assets, &domain.Asset{
			ID:            spec.id,
			Symbol:        spec.symbol,
			Name:          spec.name,
			FounderHandle: spec.founder,
			LaunchedAtMs:  StartMs,
		})

		posts, eventDays := generatePosts(rng, spec)
		ds.Posts = append(ds.Posts, posts...)
		ds.Candles = append(ds.Candles, generateCandles(rng, spec, eventDays)...)
	}
	return ds
}

// generatePosts emits 1-3 posts on event days, sometimes followed by a self-reply thread.
func generatePosts(rng *rand.Rand, spec assetSpec) ([]*domain.Post, map[int]bool) {
	var posts []*domain.Post
	eventDays := make(map[int]bool)
	n := 0
	next := func(ts int64, text string, replyTo *string) {
		n++
		posts = append(posts, &domain.Post{
			ID:          fmt.Sprintf("%s-%04d", spec.id, n),
			Author:      spec.founder,
			TimestampMs: ts,
			Text:        text,
			ReplyTo:     replyTo,
			Likes:       int64(rng.IntN(500)),
			Reposts:     int64(rng.IntN(100)),
			Replies:     int64(rng.IntN(50)),
			Quotes:      int64(rng.IntN(20)),
			Views:       int64(1000 + rng.IntN(50000)),
		})
	}

	for day := 0; day < Days; day++ {
		if day >= quietFrom && day < quietTo {
			continue
		}
		if rng.Float64() >= spec.eventProb {
			continue
		}
		eventDays[day] = true

		ts := StartMs + int64(day)*dayMs + int64(8+rng.IntN(12))*hourMs + int64(rng.IntN(60))*minuteMs
		next(ts, fmt.Sprintf("$%s update %d", spec.symbol, day), nil)

		for k := rng.IntN(3); k > 0; k-- {
			ts += int64(1+rng.IntN(10)) * minuteMs
			next(ts, "more soon", nil)
		}
		if rng.Float64() < 0.25 {
			self := spec.founder
			ts += int64(1+rng.IntN(4)) * hourMs
			next(ts, "thread continues", &self)
		}
	}
	return posts, eventDays
}

// generateCandles builds an hourly random walk with an upward drift on event days,
// plus minute candles for the last minuteDays days.
func generateCandles(rng *rand.Rand, spec assetSpec, eventDays map[int]bool) []*domain.Candle {
	hours := Days * 24
	candles := make([]*domain.Candle, 0, hours+minuteDays*24*60)

	price := spec.startPrice
	for h := 0; h < hours; h++ {
		drift := -0.0004
		if eventDays[h/24] {
			drift = 0.0015
		}
		open := price
		price = open * math.Exp(drift+0.01*rng.NormFloat64())
		wick := math.Abs(0.004 * rng.NormFloat64())

		candles = append(candles, &domain.Candle{
			AssetID:     spec.id,
			Resolution:  domain.Resolution1h,
			TimestampMs: StartMs + int64(h)*hourMs,
			Open:        open,
			High:        math.Max(open, price) * (1 + wick),
			Low:         math.Min(open, price) * (1 - wick),
			Close:       price,
			Volume:      math.Round(1000 + 9000*rng.Float64()),
		})
	}

	// Minute candles interpolate each recent hour so their last close matches it.
	hourly := candles
	for h := hours - minuteDays*24; h < hours; h++ {
		bar := hourly[h]
		for m := 0; m < 60; m++ {
			frac := float64(m+1) / 60
			cl := bar.Open + (bar.Close-bar.Open)*frac
			op := bar.Open + (bar.Close-bar.Open)*float64(m)/60
			candles = append(candles, &domain.Candle{
				AssetID:     spec.id,
				Resolution:  domain.Resolution1m,
				TimestampMs: bar.TimestampMs + int64(m)*minuteMs,
				Open:        op,
				High:        math.Max(op, cl),
				Low:         math.Min(op, cl),
				Close:       cl,
				Volume:      math.Round(bar.Volume / 60),
			})
		}
	}
	return candles
}

// Load inserts the DefaultSeed dataset and derives daily candles from the hourly series.
func Load(ctx context.Context, assets storage.AssetStore, posts storage.PostStore, candles storage.CandleStore) (*Dataset, error) {
	ds := Generate(DefaultSeed)

	for _, a := range ds.Assets {
		if err := assets.Insert(ctx, a); err != nil {
			return nil, fmt.Errorf("insert asset %s: %w", a.ID, err)
		}
	}
	if err := posts.InsertBulk(ctx, ds.Posts); err != nil {
		return nil, fmt.Errorf("insert posts: %w", err)
	}
	if err := candles.InsertBulk(ctx, ds.Candles); err != nil {
		return nil, fmt.Errorf("insert candles: %w", err)
	}

	for _, a := range ds.Assets {
		if _, err := normalization.RollupAsset(ctx, candles, a.ID, domain.Resolution1h, domain.Resolution1d, StartMs, AsOfMs-1); err != nil {
			return nil, fmt.Errorf("derive daily candles for %s: %w", a.ID, err)
		}
	}
	return ds, nil
}
