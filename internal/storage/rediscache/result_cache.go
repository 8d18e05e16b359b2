// Package rediscache publishes finished analyses to Redis for downstream readers.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/observability"
	"tweet-price-lab/internal/storage"
)

// DefaultPrefix namespaces every key written by ResultCache.
const DefaultPrefix = "tweet_price_lab:"

// ResultCache stores the latest AssetAnalysis per asset as JSON.
// A zero TTL keeps entries until the next Put replaces them.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewResultCache creates a cache over an existing client.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl, prefix: DefaultPrefix}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var (
	_ storage.ResultSink   = (*ResultCache)(nil)
	_ storage.ResultReader = (*ResultCache)(nil)
)

func (c *ResultCache) analysisKey(assetID string) string {
	return c.prefix + "analysis:" + assetID
}

func (c *ResultCache) indexKey() string {
	return c.prefix + "assets"
}

// Put replaces the stored analysis of a.AssetID and records the asset in the index.
func (c *ResultCache) Put(ctx context.Context, a *domain.AssetAnalysis) (err error) {
	if a == nil || a.AssetID == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) { observe("put_analysis", start, err) }(time.Now())

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis %s: %w", a.AssetID, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.analysisKey(a.AssetID), data, c.ttl)
		pipe.SAdd(ctx, c.indexKey(), a.AssetID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish analysis %s: %w", a.AssetID, err)
	}
	return nil
}

// Get returns the stored analysis. Returns ErrNotFound if absent or expired.
func (c *ResultCache) Get(ctx context.Context, assetID string) (a *domain.AssetAnalysis, err error) {
	defer func(start time.Time) { observe("get_analysis", start, err) }(time.Now())

	data, err := c.client.Get(ctx, c.analysisKey(assetID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis %s: %w", assetID, err)
	}

	var out domain.AssetAnalysis
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", assetID, err)
	}
	return &out, nil
}

// AssetIDs lists every asset ever published, sorted. Entries may have expired since.
func (c *ResultCache) AssetIDs(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { observe("list_assets", start, err) }(time.Now())

	ids, err = c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list published assets: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	observability.RecordDBQuery("redis", operation, time.Since(start).Seconds(), err)
}
