package alma

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const itemKeyPrefix = "alma:item:"

// cachedItem is the serialized cache entry. Misses are cached too, so a
// barcode-shaped token that turns out to be noise is not re-queried every
// sweep.
type cachedItem struct {
	Found bool  `json:"found"`
	Item  *Item `json:"item,omitempty"`
}

// CachedItems decorates an ItemSource with a Redis lookup cache. Alma API
// quotas are shared across the whole institution, so repeated barcode
// lookups across sweeps are served locally when possible. Cache failures
// degrade to direct lookups.
type CachedItems struct {
	source ItemSource
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedItems wraps source with the cache.
func NewCachedItems(source ItemSource, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedItems {
	return &CachedItems{source: source, client: client, ttl: ttl, logger: logger}
}

// Item resolves a barcode, preferring the cache.
func (c *CachedItems) Item(ctx context.Context, barcode string) (*Item, error) {
	key := itemKeyPrefix + barcode

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var entry cachedItem
		if err := json.Unmarshal(raw, &entry); err == nil {
			return entry.Item, nil
		}
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("item cache read failed", zap.Error(err))
	}

	item, err := c.source.Item(ctx, barcode)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cachedItem{Found: item != nil, Item: item}); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("item cache write failed", zap.Error(err))
		}
	}
	return item, nil
}
