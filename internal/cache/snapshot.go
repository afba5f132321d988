// Package cache holds the Redis-backed indicator snapshot cache.
// Snapshots are keyed by (ticker, timeframe, as-of date) so screening
// and chart replay reuse each other's computations; the cache is
// explicitly invalidated when new prices land for a ticker.
package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wheeljournal/internal/indicator"
)

type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
}

// NewClient connects and pings; a dead Redis is a startup error, not a
// silent degradation.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// SnapshotCache is nil-safe: a nil cache stores nothing and never hits,
// so callers run identically with Redis disabled.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func snapshotKey(ticker, timeframe string, asOf time.Time) string {
	return fmt.Sprintf("snapshot:%s:%s:%s", ticker, timeframe, asOf.Format("2006-01-02"))
}

func tickerSetKey(ticker string) string {
	return "snapshot-keys:" + ticker
}

// Get returns the cached snapshot or (nil, nil) on a miss.
func (c *SnapshotCache) Get(ctx context.Context, ticker, timeframe string, asOf time.Time) (*indicator.Snapshot, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, snapshotKey(ticker, timeframe, asOf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get snapshot: %w", err)
	}
	var snap indicator.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("redis: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (c *SnapshotCache) Set(ctx context.Context, ticker, timeframe string, snap indicator.Snapshot) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := snapshotKey(ticker, timeframe, snap.AsOf)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, raw, c.ttl)
	// Track keys per ticker so invalidation does not need SCAN.
	pipe.SAdd(ctx, tickerSetKey(ticker), key)
	pipe.Expire(ctx, tickerSetKey(ticker), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// Invalidate drops every cached snapshot of one ticker. Called after a
// price import changes the ticker's history.
func (c *SnapshotCache) Invalidate(ctx context.Context, ticker string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	setKey := tickerSetKey(ticker)
	keys, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: list snapshot keys: %w", err)
	}
	keys = append(keys, setKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate %s: %w", ticker, err)
	}
	return nil
}
